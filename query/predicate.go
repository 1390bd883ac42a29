package query

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fulldump/replica/record"
	"github.com/fulldump/replica/utils"
)

// Predicate tells if a document matches.
type Predicate func(doc map[string]any) bool

// Where is a caller supplied predicate usable with $where.
type Where func(doc map[string]any) bool

type valuePredicate func(value any, exists bool) bool

func invalidParameter(key string, allowed map[string]bool) error {
	return fmt.Errorf("%w: invalid query parameter '%s', must be [%s]", ErrInvalidQuery, key, strings.Join(utils.GetKeys(allowed), "|"))
}

func compile(q map[string]any, allowed map[string]bool) (Predicate, error) {

	predicates := make([]Predicate, 0, len(q))

	for key, value := range q {
		if strings.HasPrefix(key, "$") {
			if !allowed[key] {
				return nil, invalidParameter(key, allowed)
			}
			p, err := compileLogical(key, value, allowed)
			if err != nil {
				return nil, err
			}
			predicates = append(predicates, p)
			continue
		}

		vp, err := compileCondition(value, allowed)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", key, err)
		}
		path := strings.Split(key, ".")
		predicates = append(predicates, func(doc map[string]any) bool {
			v, exists := resolve(doc, path)
			return vp(v, exists)
		})
	}

	return func(doc map[string]any) bool {
		for _, p := range predicates {
			if !p(doc) {
				return false
			}
		}
		return true
	}, nil
}

func compileLogical(key string, value any, allowed map[string]bool) (Predicate, error) {

	switch key {
	case "$or", "$and":
		list, ok := toSlice(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects an array", ErrInvalidQuery, key)
		}
		subs := make([]Predicate, 0, len(list))
		for _, item := range list {
			sub, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s expects an array of objects", ErrInvalidQuery, key)
			}
			p, err := compile(sub, allowed)
			if err != nil {
				return nil, err
			}
			subs = append(subs, p)
		}
		if key == "$and" {
			return func(doc map[string]any) bool {
				for _, p := range subs {
					if !p(doc) {
						return false
					}
				}
				return true
			}, nil
		}
		return func(doc map[string]any) bool {
			for _, p := range subs {
				if p(doc) {
					return true
				}
			}
			return false
		}, nil

	case "$where":
		switch w := value.(type) {
		case Where:
			return Predicate(w), nil
		case func(map[string]any) bool:
			return w, nil
		case Predicate:
			return w, nil
		}
		return nil, fmt.Errorf("%w: $where expects a function, got %T", ErrInvalidQuery, value)
	}

	return nil, fmt.Errorf("%w: '%s' is not a top level operator", ErrInvalidQuery, key)
}

// compileCondition turns the value of a field key into a value predicate:
// an operator object or a plain value to compare with.
func compileCondition(cond any, allowed map[string]bool) (valuePredicate, error) {

	ops, ok := cond.(map[string]any)
	if !ok || !isOperatorObject(ops) {
		if re, ok := cond.(*regexp.Regexp); ok {
			return anyElement(func(v any) bool {
				s, ok := v.(string)
				return ok && re.MatchString(s)
			}), nil
		}
		return func(v any, exists bool) bool {
			return exists && equals(v, cond) || !exists && cond == nil
		}, nil
	}

	predicates := make([]valuePredicate, 0, len(ops))
	for op, arg := range ops {
		if !strings.HasPrefix(op, "$") {
			return nil, fmt.Errorf("%w: cannot mix operators and fields ('%s')", ErrInvalidQuery, op)
		}
		if !allowed[op] {
			return nil, invalidParameter(op, allowed)
		}
		if op == "$options" {
			continue
		}
		p, err := compileOperator(op, arg, ops, allowed)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p)
	}

	return func(v any, exists bool) bool {
		for _, p := range predicates {
			if !p(v, exists) {
				return false
			}
		}
		return true
	}, nil
}

func isOperatorObject(m map[string]any) bool {
	for key := range m {
		if strings.HasPrefix(key, "$") {
			return true
		}
	}
	return false
}

func compileOperator(op string, arg any, ops map[string]any, allowed map[string]bool) (valuePredicate, error) {

	switch op {
	case "$eq":
		return func(v any, exists bool) bool {
			return exists && equals(v, arg) || !exists && arg == nil
		}, nil

	case "$ne":
		return func(v any, exists bool) bool {
			return !(exists && equals(v, arg) || !exists && arg == nil)
		}, nil

	case "$in", "$nin":
		list, ok := toSlice(arg)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects an array", ErrInvalidQuery, op)
		}
		in := func(v any, exists bool) bool {
			for _, candidate := range list {
				if exists && equals(v, candidate) || !exists && candidate == nil {
					return true
				}
			}
			return false
		}
		if op == "$nin" {
			return func(v any, exists bool) bool { return !in(v, exists) }, nil
		}
		return in, nil

	case "$lt", "$lte", "$gt", "$gte":
		return anyElement(func(v any) bool {
			return compareOp(op, v, arg)
		}), nil

	case "$exists":
		want := truthy(arg)
		return func(v any, exists bool) bool {
			return exists == want
		}, nil

	case "$mod":
		list, ok := toSlice(arg)
		if !ok || len(list) != 2 {
			return nil, fmt.Errorf("%w: $mod expects [divisor, remainder]", ErrInvalidQuery)
		}
		divisor, okD := record.ToFloat(list[0])
		remainder, okR := record.ToFloat(list[1])
		if !okD || !okR || divisor == 0 {
			return nil, fmt.Errorf("%w: $mod expects numbers and a non zero divisor", ErrInvalidQuery)
		}
		return anyElement(func(v any) bool {
			n, ok := record.ToFloat(v)
			if !ok {
				return false
			}
			return int64(n)%int64(divisor) == int64(remainder)
		}), nil

	case "$all":
		list, ok := toSlice(arg)
		if !ok {
			return nil, fmt.Errorf("%w: $all expects an array", ErrInvalidQuery)
		}
		return func(v any, exists bool) bool {
			values, isArray := toSlice(v)
			if !exists || !isArray {
				return false
			}
			for _, want := range list {
				found := false
				for _, value := range values {
					if record.Equal(value, want) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
			return true
		}, nil

	case "$size":
		size, err := toInt(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: $size expects a number", ErrInvalidQuery)
		}
		return func(v any, exists bool) bool {
			values, isArray := toSlice(v)
			return exists && isArray && len(values) == size
		}, nil

	case "$type":
		name, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("%w: $type expects a type name", ErrInvalidQuery)
		}
		return func(v any, exists bool) bool {
			return exists && typeOf(v) == normalizeType(name)
		}, nil

	case "$regex":
		options, _ := ops["$options"].(string)
		re, err := compileRegex(arg, options)
		if err != nil {
			return nil, err
		}
		return anyElement(func(v any) bool {
			s, ok := v.(string)
			return ok && re.MatchString(s)
		}), nil

	case "$not":
		var inner valuePredicate
		var err error
		switch a := arg.(type) {
		case string:
			re, errRe := compileRegex(a, "")
			if errRe != nil {
				return nil, errRe
			}
			inner = anyElement(func(v any) bool {
				s, ok := v.(string)
				return ok && re.MatchString(s)
			})
		default:
			inner, err = compileCondition(arg, allowed)
		}
		if err != nil {
			return nil, err
		}
		return func(v any, exists bool) bool { return !inner(v, exists) }, nil

	case "$elemMatch":
		sub, ok := arg.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: $elemMatch expects an object", ErrInvalidQuery)
		}
		var match func(element any) bool
		if isOperatorObject(sub) && !hasPlainKeys(sub) {
			vp, err := compileCondition(sub, allowed)
			if err != nil {
				return nil, err
			}
			match = func(element any) bool { return vp(element, true) }
		} else {
			p, err := compile(sub, allowed)
			if err != nil {
				return nil, err
			}
			match = func(element any) bool {
				doc, ok := element.(map[string]any)
				return ok && p(doc)
			}
		}
		return func(v any, exists bool) bool {
			values, isArray := toSlice(v)
			if !exists || !isArray {
				return false
			}
			for _, element := range values {
				if match(element) {
					return true
				}
			}
			return false
		}, nil

	case "$like", "$notLike", "$notlike", "$ilike", "$iLike", "$notILike":
		pattern, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a string", ErrInvalidQuery, op)
		}
		insensitive := op == "$ilike" || op == "$iLike" || op == "$notILike"
		re := likeRegexp(pattern, insensitive)
		like := anyElement(func(v any) bool {
			s, ok := v.(string)
			return ok && re.MatchString(s)
		})
		if strings.HasPrefix(op, "$not") {
			return func(v any, exists bool) bool { return !like(v, exists) }, nil
		}
		return like, nil

	case "$or", "$and", "$where":
		return nil, fmt.Errorf("%w: '%s' is only allowed at top level", ErrInvalidQuery, op)
	}

	return nil, fmt.Errorf("%w: unsupported operator '%s'", ErrInvalidQuery, op)
}

func hasPlainKeys(m map[string]any) bool {
	for key := range m {
		if !strings.HasPrefix(key, "$") {
			return true
		}
	}
	return false
}

// anyElement applies f to the value, or to each element when the value is
// an array.
func anyElement(f func(v any) bool) valuePredicate {
	return func(v any, exists bool) bool {
		if !exists {
			return false
		}
		if values, isArray := toSlice(v); isArray {
			for _, item := range values {
				if f(item) {
					return true
				}
			}
			return false
		}
		return f(v)
	}
}

// equals compares a field value with a query value. Arrays match when they
// are equal or when any element equals the query value.
func equals(v, want any) bool {
	if record.Equal(v, want) {
		return true
	}
	if values, isArray := toSlice(v); isArray {
		for _, item := range values {
			if record.Equal(item, want) {
				return true
			}
		}
	}
	return false
}

// resolve walks a dotted path. Arrays in the middle of the path are indexed
// when the segment is a number, otherwise every element is walked.
func resolve(value any, path []string) (any, bool) {
	if len(path) == 0 {
		return value, true
	}

	switch v := value.(type) {
	case map[string]any:
		next, ok := v[path[0]]
		if !ok {
			return nil, false
		}
		return resolve(next, path[1:])
	case *record.Record:
		return resolve(v.Document(), path)
	}

	values, isArray := toSlice(value)
	if !isArray {
		return nil, false
	}

	if i, err := strconv.Atoi(path[0]); err == nil {
		if i < 0 || i >= len(values) {
			return nil, false
		}
		return resolve(values[i], path[1:])
	}

	found := []any{}
	for _, item := range values {
		if v, ok := resolve(item, path); ok {
			if nested, isArray := toSlice(v); isArray {
				found = append(found, nested...)
				continue
			}
			found = append(found, v)
		}
	}
	if len(found) == 0 {
		return nil, false
	}
	return found, true
}

func compileRegex(arg any, options string) (*regexp.Regexp, error) {
	switch r := arg.(type) {
	case *regexp.Regexp:
		return r, nil
	case string:
		flags := ""
		for _, o := range options {
			switch o {
			case 'i', 'm', 's':
				flags += string(o)
			}
		}
		if flags != "" {
			r = "(?" + flags + ")" + r
		}
		re, err := regexp.Compile(r)
		if err != nil {
			return nil, fmt.Errorf("%w: bad $regex: %s", ErrInvalidQuery, err.Error())
		}
		return re, nil
	}
	return nil, fmt.Errorf("%w: $regex expects a string", ErrInvalidQuery)
}

func typeOf(v any) string {
	if v == nil {
		return "null"
	}
	if _, ok := record.ToFloat(v); ok {
		return "number"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case time.Time, *time.Time:
		return "date"
	}
	if _, isArray := toSlice(v); isArray {
		return "array"
	}
	return "object"
}

func normalizeType(name string) string {
	switch strings.ToLower(name) {
	case "bool", "boolean":
		return "boolean"
	case "int", "long", "double", "decimal", "number":
		return "number"
	}
	return strings.ToLower(name)
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case nil:
		return false
	case string:
		return b != "" && b != "false" && b != "0"
	}
	if n, ok := record.ToFloat(v); ok {
		return n != 0
	}
	return true
}

func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	values := make([]any, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}
	return values, true
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case string:
		return strconv.Atoi(n)
	}
	f, ok := record.ToFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %v", v)
	}
	return int(f), nil
}
