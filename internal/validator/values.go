package validator

import (
	"fmt"
	"reflect"
)

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined is the absent value. A property holding Undefined is treated
// like a missing one by optional properties.
var Undefined any = undefined{}

// MapEntry is one key/value pair of a MapValue.
type MapEntry struct {
	Key   any
	Value any
}

// MapValue is an ordered Map value.
type MapValue struct {
	Entries []MapEntry
}

// NewMap creates a MapValue holding entries in order.
func NewMap(entries ...MapEntry) *MapValue {
	return &MapValue{Entries: entries}
}

// Set appends or replaces the entry for key. Comparable keys compare
// with ==; objects, arrays and other uncomparable keys are distinct
// values and always append, as they would in a JavaScript Map.
func (m *MapValue) Set(key, value any) {
	if key == nil || reflect.ValueOf(key).Comparable() {
		for i, e := range m.Entries {
			if e.Key == key {
				m.Entries[i].Value = value
				return
			}
		}
	}
	m.Entries = append(m.Entries, MapEntry{Key: key, Value: value})
}

// SetValue is an ordered Set value.
type SetValue struct {
	Items []any
}

// NewSet creates a SetValue holding items in order.
func NewSet(items ...any) *SetValue {
	return &SetValue{Items: items}
}

// ValidationError records one failed check.
type ValidationError struct {
	Path     string `json:"path"`
	Actual   any    `json:"actual"`
	Expected any    `json:"expected"`
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: expected %v, got %s", e.Path, e.Expected, describeValue(e.Actual))
}

// StackOverflowError is the panic value raised when nested calls exceed
// MaxDepth, which happens for cyclic data when circular references are
// not guarded.
type StackOverflowError struct {
	Function string
	Depth    int
}

func (e *StackOverflowError) Error() string {
	return fmt.Sprintf("validator: call depth %d exceeded in %s", e.Depth, e.Function)
}

func toNumber(v any) (float64, bool) {
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

// isObject reports whether v is a non-null, non-primitive value.
func isObject(v any) bool {
	switch v.(type) {
	case nil, undefined, string, bool:
		return false
	}
	_, num := toNumber(v)
	return !num
}

// asList returns the elements of an array value. Slices other than []any
// are read through reflection.
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case nil, string, map[string]any, *MapValue, *SetValue:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// identity returns a stable identity for reference values, used by the
// recursion guard.
func identity(v any) (uintptr, bool) {
	switch r := v.(type) {
	case *MapValue:
		return reflect.ValueOf(r).Pointer(), true
	case *SetValue:
		return reflect.ValueOf(r).Pointer(), true
	case nil:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	}
	return 0, false
}

func describeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case undefined:
		return "undefined"
	case string:
		return fmt.Sprintf("%q", val)
	case map[string]any:
		return "object"
	case *MapValue:
		return "Map"
	case *SetValue:
		return "Set"
	}
	if _, ok := asList(v); ok {
		return "array"
	}
	return fmt.Sprintf("%v", v)
}
