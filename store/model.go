package store

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jinzhu/inflection"

	"github.com/goliatone/go-servicelayer/serviceerr"
)

// Op tags a field change.
type Op int

const (
	// OpSet assigns a value to the field.
	OpSet Op = iota
	// OpClear removes the attribute (resets the field to its zero value).
	OpClear
)

func (o Op) String() string {
	if o == OpClear {
		return "clear"
	}
	return "set"
}

// Change is one entry of an update: either Set(value) or Clear.
type Change struct {
	Field string
	Op    Op
	Value any
}

// Set builds a Change assigning value to field.
func Set(field string, value any) Change { return Change{Field: field, Op: OpSet, Value: value} }

// Clear builds a Change removing field.
func Clear(field string) Change { return Change{Field: field, Op: OpClear} }

// Field is one entry of a model's update table.
type Field[T any] struct {
	// Name is the parameter name used by services and criteria.
	Name string
	// Attribute is the backend column or directory attribute name.
	Attribute string
	Get       func(T) any
	Set       func(T, any) error
	Clear     func(T)
}

// Model describes a record type: how to build one, how to identify it and which fields
// can be assigned by name.
type Model[T any] struct {
	Name     string
	IDField  string
	New      func() T
	ID       func(T) string
	SetID    func(T, string)
	Fields   []Field[T]
	Required []string

	index map[string]int
}

// NewModel builds a model descriptor. The collection name defaults to the pluralized
// snake_case name of the record type and IDField defaults to "id".
func NewModel[T any](newFn func() T, id func(T) string, setID func(T, string), fields ...Field[T]) *Model[T] {
	m := &Model[T]{
		IDField: "id",
		New:     newFn,
		ID:      id,
		SetID:   setID,
		Fields:  fields,
		index:   make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		m.index[f.Name] = i
	}
	m.Name = inflection.Plural(toSnake(m.typeName()))
	return m
}

// Named overrides the collection name.
func (m *Model[T]) Named(name string) *Model[T] {
	m.Name = name
	return m
}

// Require marks fields that must be non-empty on creation.
func (m *Model[T]) Require(names ...string) *Model[T] {
	m.Required = append(m.Required, names...)
	return m
}

// WithIDField overrides the identifier column used for default ordering.
func (m *Model[T]) WithIDField(name string) *Model[T] {
	m.IDField = name
	return m
}

// Field looks up a field by parameter name.
func (m *Model[T]) Field(name string) (Field[T], bool) {
	i, ok := m.index[name]
	if !ok {
		return Field[T]{}, false
	}
	return m.Fields[i], true
}

// TypeName returns the Go type name of the managed records.
func (m *Model[T]) TypeName() string {
	var zero T
	if t := reflect.TypeOf(&zero).Elem(); t.Kind() != reflect.Interface {
		return t.String()
	}
	return fmt.Sprintf("%T", m.New())
}

func (m *Model[T]) typeName() string {
	t := reflect.TypeOf(m.New())
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "record"
	}
	return t.Name()
}

// Check verifies that obj is a usable instance of the managed type.
func (m *Model[T]) Check(obj any) (T, error) {
	var zero T
	rec, ok := obj.(T)
	if !ok {
		return zero, serviceerr.TypeMismatch(obj, m.TypeName())
	}
	if isNil(rec) {
		return zero, serviceerr.TypeMismatch(obj, m.TypeName())
	}
	return rec, nil
}

// Build creates a fresh record and applies attrs to it.
func (m *Model[T]) Build(attrs map[string]any) (T, error) {
	rec := m.New()
	changes := make([]Change, 0, len(attrs))
	for _, k := range sortedKeys(attrs) {
		changes = append(changes, Set(k, attrs[k]))
	}
	if err := m.Apply(rec, changes); err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

// Apply runs changes against rec in order. Unknown fields and rejected values fail
// with a validation error and leave the remaining changes unapplied.
func (m *Model[T]) Apply(rec T, changes []Change) error {
	for _, c := range changes {
		f, ok := m.Field(c.Field)
		if !ok {
			return serviceerr.Validation(
				fmt.Sprintf("%s has no field %q", m.TypeName(), c.Field),
				map[string]string{c.Field: "unknown field"},
			)
		}
		switch c.Op {
		case OpClear:
			f.Clear(rec)
		default:
			if err := f.Set(rec, c.Value); err != nil {
				return serviceerr.Validation(
					fmt.Sprintf("invalid value for %s", c.Field),
					map[string]string{c.Field: err.Error()},
				)
			}
		}
	}
	return nil
}

// Validate checks required fields on rec.
func (m *Model[T]) Validate(rec T) error {
	errs := validation.Errors{}
	for _, name := range m.Required {
		f, ok := m.Field(name)
		if !ok {
			errs[name] = fmt.Errorf("unknown field")
			continue
		}
		errs[name] = validation.Validate(f.Get(rec), validation.Required)
	}
	if err := errs.Filter(); err != nil {
		fields := map[string]string{}
		for k, v := range err.(validation.Errors) {
			fields[k] = v.Error()
		}
		return serviceerr.Validation(fmt.Sprintf("invalid %s: %v", m.TypeName(), err), fields)
	}
	return nil
}

// Attributes returns the current value of every field keyed by attribute name.
func (m *Model[T]) Attributes(rec T) map[string]any {
	out := make(map[string]any, len(m.Fields))
	for _, f := range m.Fields {
		out[f.Attribute] = f.Get(rec)
	}
	return out
}

// StringField maps a string field.
func StringField[T any](name, attribute string, ptr func(T) *string) Field[T] {
	return Field[T]{
		Name:      name,
		Attribute: attribute,
		Get:       func(r T) any { return *ptr(r) },
		Set: func(r T, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			*ptr(r) = s
			return nil
		},
		Clear: func(r T) { *ptr(r) = "" },
	}
}

// StringsField maps a multi-valued string field.
func StringsField[T any](name, attribute string, ptr func(T) *[]string) Field[T] {
	return Field[T]{
		Name:      name,
		Attribute: attribute,
		Get:       func(r T) any { return *ptr(r) },
		Set: func(r T, v any) error {
			switch vv := v.(type) {
			case []string:
				*ptr(r) = append([]string(nil), vv...)
			case string:
				*ptr(r) = []string{vv}
			case []any:
				out := make([]string, 0, len(vv))
				for _, e := range vv {
					s, err := toString(e)
					if err != nil {
						return err
					}
					out = append(out, s)
				}
				*ptr(r) = out
			default:
				return fmt.Errorf("cannot assign %T to a list of strings", v)
			}
			return nil
		},
		Clear: func(r T) { *ptr(r) = nil },
	}
}

// IntField maps an integer field.
func IntField[T any](name, attribute string, ptr func(T) *int) Field[T] {
	return Field[T]{
		Name:      name,
		Attribute: attribute,
		Get:       func(r T) any { return *ptr(r) },
		Set: func(r T, v any) error {
			switch vv := v.(type) {
			case int:
				*ptr(r) = vv
			case int64:
				*ptr(r) = int(vv)
			case float64:
				*ptr(r) = int(vv)
			case string, []string:
				s, _ := toString(vv)
				n, err := strconv.Atoi(s)
				if err != nil {
					return fmt.Errorf("%q is not an integer", s)
				}
				*ptr(r) = n
			default:
				return fmt.Errorf("cannot assign %T to an integer", v)
			}
			return nil
		},
		Clear: func(r T) { *ptr(r) = 0 },
	}
}

func toString(v any) (string, error) {
	switch vv := v.(type) {
	case string:
		return vv, nil
	case []string:
		if len(vv) == 0 {
			return "", nil
		}
		return vv[0], nil
	case fmt.Stringer:
		return vv.String(), nil
	case int, int64, float64, bool:
		return fmt.Sprint(vv), nil
	default:
		return "", fmt.Errorf("cannot assign %T to a string", v)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
