package domain

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/infinite-echoes/echoes/pkg/valuetype"
)

// MergePolicy decides how a node's output for a field is combined with the
// value already held by the run.
type MergePolicy int

const (
	// Overwrite replaces the current value. Fields start Unset.
	Overwrite MergePolicy = iota
	// Append concatenates the incoming sequence onto the current one.
	// Fields start as an empty sequence.
	Append
)

func (p MergePolicy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Append:
		return "append"
	default:
		return fmt.Sprintf("MergePolicy(%d)", int(p))
	}
}

// ParseMergePolicy maps the textual policy name used in topology files.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch s {
	case "overwrite", "":
		return Overwrite, nil
	case "append":
		return Append, nil
	default:
		return Overwrite, fmt.Errorf("unknown merge policy %q", s)
	}
}

// Field declares a named RunState slot and its merge policy.
// Type is optional; for append fields it checks each element.
type Field struct {
	Name   string
	Policy MergePolicy
	Type   valuetype.Type
}

// Of returns f restricted to values of type t.
func (f Field) Of(t valuetype.Type) Field {
	f.Type = t
	return f
}

func (f Field) check(v any) error {
	if f.Type == nil {
		return nil
	}
	return f.Type.Check(v)
}

// OverwriteField declares a field whose value is replaced on every write.
func OverwriteField(name string) Field {
	return Field{Name: name, Policy: Overwrite}
}

// AppendField declares a field that accumulates sequences.
func AppendField(name string) Field {
	return Field{Name: name, Policy: Append}
}

// Schema is the fixed set of fields a RunState may hold.
// It is immutable once created and safe to share.
type Schema struct {
	fields map[string]Field
	order  []string
}

// NewSchema validates the declarations and returns an immutable schema.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make(map[string]Field, len(fields)),
		order:  make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema field name cannot be empty")
		}
		if f.Policy != Overwrite && f.Policy != Append {
			return nil, fmt.Errorf("schema field %q: invalid merge policy %v", f.Name, f.Policy)
		}
		if _, dup := s.fields[f.Name]; dup {
			return nil, fmt.Errorf("schema field %q declared twice", f.Name)
		}
		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
	}
	return s, nil
}

// MustSchema is NewSchema for package-level declarations; it panics on error.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Has reports whether name is declared.
func (s *Schema) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Fields returns the declarations in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}

type unsetValue struct{}

func (unsetValue) String() string { return "<unset>" }

// Unset is returned by Get for overwrite fields that were never written.
// It compares unequal to every value a node can produce, including nil.
var Unset any = unsetValue{}

// IsUnset reports whether v is the Unset sentinel.
func IsUnset(v any) bool {
	_, ok := v.(unsetValue)
	return ok
}

// Update is the partial output of a node: a subset of schema fields.
type Update map[string]any

// View is the read-only face of a RunState handed to nodes and decisions.
type View interface {
	Get(field string) (any, error)
	IsSet(field string) bool
	List(field string) ([]any, error)
	String(field string) (string, bool)
	Strings(field string) []string
	Snapshot() map[string]any
}

// RunState is the data bag threaded through one run.
// It is owned by a single run and is not safe for concurrent mutation.
type RunState struct {
	schema *Schema
	values map[string]any
}

var _ View = (*RunState)(nil)

// NewRunState creates a state with every overwrite field Unset and every
// append field empty.
func NewRunState(schema *Schema) *RunState {
	st := &RunState{
		schema: schema,
		values: make(map[string]any, len(schema.order)),
	}
	for _, name := range schema.order {
		if schema.fields[name].Policy == Append {
			st.values[name] = []any{}
		} else {
			st.values[name] = Unset
		}
	}
	return st
}

// Schema returns the schema the state was created with.
func (s *RunState) Schema() *Schema {
	return s.schema
}

// Get returns the current value of a declared field.
func (s *RunState) Get(field string) (any, error) {
	v, ok := s.values[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return v, nil
}

// IsSet reports whether an overwrite field has been written, or an append
// field holds at least one element.
func (s *RunState) IsSet(field string) bool {
	v, ok := s.values[field]
	if !ok || IsUnset(v) {
		return false
	}
	if list, ok := v.([]any); ok {
		return len(list) > 0
	}
	return true
}

// List returns a copy of an append field's sequence.
func (s *RunState) List(field string) ([]any, error) {
	f, ok := s.schema.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if f.Policy != Append {
		return nil, fmt.Errorf("field %q is not an append field", field)
	}
	return deepCopy(s.values[field]).([]any), nil
}

// String returns an overwrite field as a string. ok is false when the field
// is unknown, unset or holds another type.
func (s *RunState) String(field string) (string, bool) {
	v, ok := s.values[field]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Strings returns the string elements of an append field, skipping others.
func (s *RunState) Strings(field string) []string {
	list, ok := s.values[field].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// Merge applies an update according to each field's policy.
// The update is validated as a whole first: on error nothing is applied.
func (s *RunState) Merge(update Update) error {
	appends := make(map[string][]any)
	for name, v := range update {
		f, ok := s.schema.Field(name)
		if !ok {
			return &FieldError{Field: name, Err: ErrUnknownField}
		}
		if f.Policy != Append {
			if err := f.check(v); err != nil {
				return &FieldError{Field: name, Err: fmt.Errorf("%w: %v", ErrInvalidUpdate, err)}
			}
			continue
		}
		seq, err := toSequence(v)
		if err != nil {
			return &FieldError{Field: name, Err: fmt.Errorf("%w: %v", ErrInvalidUpdate, err)}
		}
		for i, elem := range seq {
			if err := f.check(elem); err != nil {
				return &FieldError{Field: name, Err: fmt.Errorf("%w: element %d: %v", ErrInvalidUpdate, i, err)}
			}
		}
		appends[name] = seq
	}

	for name, v := range update {
		if seq, ok := appends[name]; ok {
			current := s.values[name].([]any)
			next := make([]any, 0, len(current)+len(seq))
			next = append(next, current...)
			for _, elem := range seq {
				next = append(next, deepCopy(elem))
			}
			s.values[name] = next
			continue
		}
		s.values[name] = deepCopy(v)
	}
	return nil
}

// Clone returns an independent copy. Maps, slices, arrays and pointers held
// in fields are copied recursively, so mutating a value read from the clone
// never reaches s.
func (s *RunState) Clone() *RunState {
	next := &RunState{
		schema: s.schema,
		values: make(map[string]any, len(s.values)),
	}
	for k, v := range s.values {
		next.values[k] = deepCopy(v)
	}
	return next
}

// Snapshot returns the set fields as a plain map. Unset overwrite fields are omitted.
func (s *RunState) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		if IsUnset(v) {
			continue
		}
		out[k] = deepCopy(v)
	}
	return out
}

// MarshalJSON renders the snapshot.
func (s *RunState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

func toSequence(v any) ([]any, error) {
	switch seq := v.(type) {
	case nil:
		return nil, fmt.Errorf("nil is not a sequence")
	case []any:
		return seq, nil
	case []string:
		out := make([]any, len(seq))
		for i, str := range seq {
			out[i] = str
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a sequence, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// deepCopy copies maps, slices, arrays and pointers recursively. Struct values
// are copied by assignment; their reference fields stay shared.
func deepCopy(v any) any {
	if v == nil {
		return nil
	}
	return copyValue(reflect.ValueOf(v)).Interface()
}

func copyValue(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(copyValue(rv.Elem()))
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := range rv.Len() {
			out.Index(i).Set(copyValue(rv.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := range rv.Len() {
			out.Index(i).Set(copyValue(rv.Index(i)))
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type().Elem())
		out.Elem().Set(copyValue(rv.Elem()))
		return out
	default:
		return rv
	}
}
