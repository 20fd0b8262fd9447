// Package valuetype describes the values a RunState field accepts.
//
// A field without a type accepts any value. Typed fields are checked on every
// merge, so a node that writes a number into a string field fails the run
// with an invalid update instead of corrupting later nodes.
//
// Types can be built in Go or parsed from the names used in topology files:
//
//	string, int, float, bool, any, [string], [[int]]
package valuetype

import (
	"fmt"
	"reflect"
)

// Type checks a single value.
type Type interface {
	Name() string
	Check(value any) error
}

// MismatchError reports a value of the wrong type.
type MismatchError struct {
	Want  string
	Value any
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected %s, got %T", e.Want, e.Value)
}

type scalar struct {
	name  string
	match func(any) bool
}

func (s *scalar) Name() string { return s.name }

func (s *scalar) Check(value any) error {
	if !s.match(value) {
		return &MismatchError{Want: s.name, Value: value}
	}
	return nil
}

var (
	String Type = &scalar{name: "string", match: func(v any) bool {
		_, ok := v.(string)
		return ok
	}}

	// Int also accepts whole float64 values, which is what JSON decoding yields.
	Int Type = &scalar{name: "int", match: func(v any) bool {
		switch n := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	}}

	Float Type = &scalar{name: "float", match: func(v any) bool {
		switch v.(type) {
		case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	}}

	Bool Type = &scalar{name: "bool", match: func(v any) bool {
		_, ok := v.(bool)
		return ok
	}}

	// Any accepts every value, nil included.
	Any Type = &scalar{name: "any", match: func(any) bool { return true }}
)

type list struct {
	elem Type
}

// List accepts slices and arrays whose elements all match elem.
func List(elem Type) Type {
	return &list{elem: elem}
}

func (l *list) Name() string { return "[" + l.elem.Name() + "]" }

func (l *list) Check(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return &MismatchError{Want: l.Name(), Value: value}
	}
	for i := range rv.Len() {
		if err := l.elem.Check(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

type custom struct {
	name  string
	check func(any) error
}

// Custom wraps a check function under a name.
func Custom(name string, check func(any) error) Type {
	return &custom{name: name, check: check}
}

func (c *custom) Name() string { return c.name }

func (c *custom) Check(value any) error { return c.check(value) }

// Parse resolves a type name.
func Parse(name string) (Type, error) {
	if n := len(name); n > 2 && name[0] == '[' && name[n-1] == ']' {
		elem, err := Parse(name[1 : n-1])
		if err != nil {
			return nil, err
		}
		return List(elem), nil
	}
	switch name {
	case "string":
		return String, nil
	case "int":
		return Int, nil
	case "float":
		return Float, nil
	case "bool":
		return Bool, nil
	case "any":
		return Any, nil
	default:
		return nil, fmt.Errorf("unsupported type %q", name)
	}
}
