package query

import (
	"strings"

	"github.com/fulldump/replica/record"
)

// Fuzzy is the $fuzzy custom filter. The argument is either the search text,
// matched against every string field, or {"$search": text, "$fields": [...]}.
// A record matches when the characters of the search appear in order in one
// of the fields, ignoring case.
func Fuzzy(items []*record.Record, arg any, _ map[string]any) []*record.Record {

	var search string
	var fields []string

	switch a := arg.(type) {
	case string:
		search = a
	case map[string]any:
		search, _ = a["$search"].(string)
		if f, ok := a["$fields"]; ok {
			fields, _ = toStrings(f)
		}
	default:
		return items
	}

	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return items
	}

	result := make([]*record.Record, 0, len(items))
	for _, item := range items {
		doc := item.Fields()
		candidates := fields
		if len(candidates) == 0 {
			candidates = make([]string, 0, len(doc))
			for key := range doc {
				candidates = append(candidates, key)
			}
		}
		for _, field := range candidates {
			s, ok := doc[field].(string)
			if ok && subsequence(strings.ToLower(s), search) {
				result = append(result, item)
				break
			}
		}
	}

	return result
}

func subsequence(s, search string) bool {
	needle := []rune(search)
	i := 0
	for _, c := range s {
		if i < len(needle) && c == needle[i] {
			i++
		}
	}
	return i == len(needle)
}
