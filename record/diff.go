package record

import (
	"reflect"
)

// Diff returns the fields of modified that differ from original. When keys is
// not empty only those keys are considered. Reserved fields are ignored.
func Diff(original, modified map[string]any, keys []string) map[string]any {
	diff := map[string]any{}

	consider := func(key string) {
		switch key {
		case TempIDField, IsCloneField, IsTempField:
			return
		}
		mv, exists := modified[key]
		if !exists {
			return
		}
		ov, existed := original[key]
		if existed && Equal(ov, mv) {
			return
		}
		diff[key] = CloneValue(mv)
	}

	if len(keys) > 0 {
		for _, key := range keys {
			consider(key)
		}
		return diff
	}

	for key := range modified {
		consider(key)
	}
	return diff
}

// Pick returns the subset of fields listed in keys that exist in fields.
func Pick(fields map[string]any, keys []string) map[string]any {
	picked := make(map[string]any, len(keys))
	for _, key := range keys {
		if value, exists := fields[key]; exists {
			picked[key] = CloneValue(value)
		}
	}
	return picked
}

// Equal compares two JSON-like values deeply. Numbers are compared by value
// regardless of their Go type.
func Equal(a, b any) bool {
	if fa, ok := ToFloat(a); ok {
		fb, ok := ToFloat(b)
		return ok && fa == fb
	}

	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, exists := bv[k]
			if !exists || !Equal(v, w) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

// ToFloat converts any Go numeric value to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// CloneValue deep copies maps and slices, leaving scalars untouched.
func CloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return CloneFields(v)
	case []any:
		if v == nil {
			return nil
		}
		cloned := make([]any, len(v))
		for i, item := range v {
			cloned[i] = CloneValue(item)
		}
		return cloned
	case []string:
		return append([]string(nil), v...)
	default:
		return v
	}
}

func CloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	cloned := make(map[string]any, len(fields))
	for k, item := range fields {
		cloned[k] = CloneValue(item)
	}
	return cloned
}
