package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/SierraSoftworks/connor"

	"github.com/fulldump/replica/record"
)

// compareOp evaluates $lt, $lte, $gt and $gte. Numbers are delegated to
// connor, strings and dates are compared natively. Values of different kinds
// never match.
func compareOp(op string, value, target any) bool {

	if a, ok := record.ToFloat(value); ok {
		b, ok := record.ToFloat(target)
		if !ok {
			return false
		}
		switch op {
		case "$lt":
			return connorMatch("$lt", a, b)
		case "$gt":
			return connorMatch("$gt", a, b)
		case "$lte":
			return !connorMatch("$gt", a, b)
		case "$gte":
			return !connorMatch("$lt", a, b)
		}
		return false
	}

	c, ok := compareNative(value, target)
	if !ok {
		return false
	}
	switch op {
	case "$lt":
		return c < 0
	case "$lte":
		return c <= 0
	case "$gt":
		return c > 0
	case "$gte":
		return c >= 0
	}
	return false
}

func connorMatch(op string, value, target float64) bool {
	match, err := connor.Match(map[string]interface{}{
		"v": map[string]interface{}{op: target},
	}, map[string]interface{}{
		"v": value,
	})
	if err != nil {
		return false
	}
	return match
}

func compareNative(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := toTime(b)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

// rank orders values of different kinds when sorting: missing and null
// first, then numbers, strings, booleans and the rest.
func rank(v any, exists bool) int {
	if !exists || v == nil {
		return 0
	}
	if _, ok := record.ToFloat(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case time.Time:
		return 3
	case bool:
		return 4
	}
	return 5
}

// compareValues is a total order used by $sort.
func compareValues(a any, aExists bool, b any, bExists bool) int {
	ra, rb := rank(a, aExists), rank(b, bExists)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 0:
		return 0
	case 1:
		fa, _ := record.ToFloat(a)
		fb, _ := record.ToFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2, 3:
		c, _ := compareNative(a, b)
		return c
	case 4:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
