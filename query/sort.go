package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fulldump/replica/record"
)

type SortKey struct {
	Field     string
	Direction int
}

// Sort keeps the priority of keys explicit. A $sort given as a map is
// applied in alphabetical key order.
type Sort []SortKey

func ParseSort(v any) (Sort, error) {
	switch s := v.(type) {
	case Sort:
		return s, nil
	case []SortKey:
		return s, nil
	case map[string]any:
		fields := make([]string, 0, len(s))
		for field := range s {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		keys := make(Sort, 0, len(fields))
		for _, field := range fields {
			direction, err := toInt(s[field])
			if err != nil {
				return nil, fmt.Errorf("%w: invalid $sort direction for '%s'", ErrInvalidQuery, field)
			}
			keys = append(keys, SortKey{Field: field, Direction: direction})
		}
		return keys, nil
	case map[string]int:
		m := make(map[string]any, len(s))
		for k, d := range s {
			m[k] = d
		}
		return ParseSort(m)
	}
	return nil, fmt.Errorf("%w: invalid $sort '%v'", ErrInvalidQuery, v)
}

// SortRecords sorts in place keeping the relative order of equal records.
// A negative direction sorts descending.
func SortRecords(records []*record.Record, keys Sort) {
	if len(keys) == 0 {
		return
	}

	paths := make([][]string, len(keys))
	for i, key := range keys {
		paths[i] = strings.Split(key.Field, ".")
	}

	docs := make(map[*record.Record]map[string]any, len(records))
	for _, r := range records {
		docs[r] = r.Document()
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := docs[records[i]], docs[records[j]]
		for k, key := range keys {
			va, okA := resolve(a, paths[k])
			vb, okB := resolve(b, paths[k])
			c := compareValues(va, okA, vb, okB)
			if c == 0 {
				continue
			}
			if key.Direction < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
