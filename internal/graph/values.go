package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// ErrUnsupportedValue marks a property value that cannot be compared
// reliably: an integer outside the int64 range or a map.
var ErrUnsupportedValue = errors.New("unsupported property value")

// CheckValue rejects decoded property values that NormalizeValue cannot map
// onto a canonical kind. Lists are checked element by element.
func CheckValue(v any) error {
	switch x := v.(type) {
	case json.Number:
		if isIntegerLiteral(string(x)) {
			if _, err := x.Int64(); err != nil {
				return fmt.Errorf("integer %s outside int64 range: %w", x, ErrUnsupportedValue)
			}
		}
		return nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return fmt.Errorf("integer %d outside int64 range: %w", x, ErrUnsupportedValue)
		}
		return nil
	case uint64:
		if x > math.MaxInt64 {
			return fmt.Errorf("integer %d outside int64 range: %w", x, ErrUnsupportedValue)
		}
		return nil
	}
	if v != nil && reflect.TypeOf(v).Kind() == reflect.Map {
		return fmt.Errorf("map values are not supported: %w", ErrUnsupportedValue)
	}
	if list, ok := asList(v); ok {
		for i, e := range list {
			if err := CheckValue(e); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	}
	return nil
}

func isIntegerLiteral(s string) bool {
	return !strings.ContainsAny(s, ".eE")
}

// NormalizeValue maps a property value onto the canonical set of kinds used
// for comparison and serialisation: all integer kinds become int64, float32
// becomes float64, json.Number becomes int64 when integral and float64
// otherwise, and slices (other than []byte) become []any of normalised
// elements. Unsigned values above math.MaxInt64 are kept as uint64.
func NormalizeValue(v any) any {
	if i, ok := asInt64(v); ok {
		return i
	}
	if f, ok := asFloat64(v); ok {
		return f
	}
	if list, ok := asList(v); ok {
		out := make([]any, len(list))
		for i, e := range list {
			out[i] = NormalizeValue(e)
		}
		return out
	}
	return v
}

// ValueEqual compares two property values after normalisation. Integers and
// floats are distinct kinds: 1 and 1.0 are not equal.
func ValueEqual(a, b any) bool {
	if ai, ok := asInt64(a); ok {
		bi, ok := asInt64(b)
		return ok && ai == bi
	}
	if af, ok := asFloat64(a); ok {
		bf, ok := asFloat64(b)
		return ok && af == bf
	}
	if al, ok := asList(a); ok {
		bl, ok := asList(b)
		if !ok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !ValueEqual(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	if _, ok := asList(b); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint:
		return uintToInt64(uint64(x))
	case uint64:
		return uintToInt64(x)
	case uint32:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint8:
		return int64(x), true
	case json.Number:
		i, err := x.Int64()
		return i, err == nil
	}
	return 0, false
}

func uintToInt64(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return 0, false
		}
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func asList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false // byte arrays are scalar values
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
