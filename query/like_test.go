package query

import (
	"testing"
)

func TestLike(t *testing.T) {

	cases := []struct {
		f       func(s, pattern string) bool
		name    string
		s       string
		pattern string
		want    bool
	}{
		{Like, "like prefix", "Moose", "M%", true},
		{Like, "like is case sensitive", "Moose", "m%", false},
		{ILike, "ilike ignores case", "Moose", "m%", true},
		{Like, "underscore", "Moose", "M__se", true},
		{Like, "underscore exact length", "Moose", "M_se", false},
		{Like, "regex characters are literal", "a.b", "a.b", true},
		{Like, "dot is not a wildcard", "axb", "a.b", false},
		{Like, "anchored", "xMoose", "M%", false},
		{ILike, "multiline", "line\nMoose", "%moose", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.f(c.s, c.pattern); got != c.want {
				t.Fatalf("%q with %q: expected %v, got %v", c.s, c.pattern, c.want, got)
			}
		})
	}
}
