package query

import (
	"regexp"
	"strings"
)

// Like tells if s matches the SQL LIKE pattern, case sensitive. % matches
// any sequence and _ any single character.
func Like(s, pattern string) bool {
	return likeRegexp(pattern, false).MatchString(s)
}

// ILike is the case insensitive Like.
func ILike(s, pattern string) bool {
	return likeRegexp(pattern, true).MatchString(s)
}

func likeRegexp(pattern string, insensitive bool) *regexp.Regexp {
	b := &strings.Builder{}
	if insensitive {
		b.WriteString("(?is)")
	} else {
		b.WriteString("(?s)")
	}
	b.WriteString("^")
	for _, c := range pattern {
		switch c {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
