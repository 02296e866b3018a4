package weft

import (
	"fmt"
	"reflect"
)

// Values is the string-keyed mapping used throughout weft for component
// configuration, persisted state attributes, event parameters and data
// records. It is msgpack-friendly: values should be strings, numbers,
// booleans, nil, []any or nested Values/map[string]any.
//
// Values taken from a declaration are always deep-copied before they are
// attached to a live component, so class-level defaults can never leak
// mutations between instances.
type Values map[string]any

// Clone returns a deep copy of v. Nested maps and slices are copied,
// scalar values are shared (they are immutable).
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = deepCopyValue(val)
	}
	return out
}

// Merged returns a new Values with overrides applied on top of v.
// Neither input is mutated.
func (v Values) Merged(overrides Values) Values {
	out := v.Clone()
	for k, val := range overrides {
		out[k] = deepCopyValue(val)
	}
	return out
}

// Equal reports structural equality of two mappings.
func (v Values) Equal(other Values) bool {
	if len(v) != len(other) {
		return false
	}
	for k, val := range v {
		ov, ok := other[k]
		if !ok || !valueEqual(val, ov) {
			return false
		}
	}
	return true
}

// GetString returns the value under key as a string, or "" if absent or
// of a different type.
func (v Values) GetString(key string) string {
	s, _ := v[key].(string)
	return s
}

// GetInt returns the value under key as an int, converting the numeric
// types msgpack decoding may produce.
func (v Values) GetInt(key string) int {
	switch n := v[key].(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	}
	return 0
}

// GetBool returns the value under key as a bool, or def if the key is
// absent. A non-bool value counts as absent.
func (v Values) GetBool(key string, def bool) bool {
	if b, ok := v[key].(bool); ok {
		return b
	}
	return def
}

func deepCopyValue(val any) any {
	switch t := val.(type) {
	case Values:
		return t.Clone()
	case map[string]any:
		return Values(t).Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return val
	}
}

func valueEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	// Normalize the integer widths msgpack round-trips introduce.
	if ai, aok := asInt64(a); aok {
		if bi, bok := asInt64(b); bok {
			return ai == bi
		}
		return false
	}
	switch at := a.(type) {
	case string, bool, float64, float32:
		return a == b
	case Values:
		if bt, ok := toValues(b); ok {
			return at.Equal(bt)
		}
		return false
	case map[string]any:
		if bt, ok := toValues(b); ok {
			return Values(at).Equal(bt)
		}
		return false
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !valueEqual(at[i], bt[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func toValues(v any) (Values, bool) {
	switch t := v.(type) {
	case Values:
		return t, true
	case map[string]any:
		return Values(t), true
	}
	return nil, false
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

// dataKey normalizes a data record id to the string key used in
// structural bookkeeping (sleeping registry, order comparison). Ids are
// opaque: two ids are the same iff their normalized keys match.
func dataKey(id any) string {
	if s, ok := id.(string); ok {
		return s
	}
	if n, ok := asInt64(id); ok {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%v", id)
}
