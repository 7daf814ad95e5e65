package core

import (
	"encoding/json"
	"reflect"
)

// Normalize maps arbitrary caller-supplied values onto the canonical
// in-memory forms: int64 for integers, float64 for fractional numbers,
// recursively for maps and slices. json.Number (from DecodeDocument) folds
// into the same forms.
func Normalize(value any) any {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float32:
		return float64(v)
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
		return v
	case map[string]any:
		return NormalizeMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Normalize(item)
		}
		return out
	}
	return value
}

// NormalizeMap normalizes every value of a document in place.
func NormalizeMap(doc map[string]any) map[string]any {
	for k, v := range doc {
		doc[k] = Normalize(v)
	}
	return doc
}

// Equal compares two normalized values. Integers and floats compare
// numerically across representations.
func Equal(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two normalized values: -1, 0 or 1. Numbers order
// numerically, strings lexicographically, booleans false before true.
// Incomparable pairs (including nil) order as equal so sorts stay stable.
func Compare(a, b any) int {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
		return 0
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			switch {
			case as < bs:
				return -1
			case as > bs:
				return 1
			}
			return 0
		}
		return 0
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch {
			case !ab && bb:
				return -1
			case ab && !bb:
				return 1
			}
			return 0
		}
		return 0
	}
	return 0
}

// Comparable reports whether Compare can meaningfully order the two values.
func Comparable(a, b any) bool {
	if _, ok := asFloat(a); ok {
		_, ok := asFloat(b)
		return ok
	}
	if _, ok := a.(string); ok {
		_, ok := b.(string)
		return ok
	}
	if _, ok := a.(bool); ok {
		_, ok := b.(bool)
		return ok
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
