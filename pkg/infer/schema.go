package infer

import (
	"reflect"
	"slices"
	"strings"
)

// IsRequired reports whether name is in the required set of an object schema.
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	_, found := slices.BinarySearch(s.Required, name)
	return found
}

// Property returns the schema of a named property, or nil.
func (s *Schema) Property(name string) *Schema {
	if s == nil || s.Properties == nil {
		return nil
	}
	return s.Properties[name]
}

// PropertyNames returns the property names of an object schema in sorted order.
func (s *Schema) PropertyNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// HasConflicts reports whether any position in the schema saw a kind conflict.
func (s *Schema) HasConflicts() bool {
	return len(Diagnostics(s)) > 0
}

// Diagnostics collects every kind conflict in the schema tree. Conflicts at a
// node come before those of its properties (sorted by name) and items.
func Diagnostics(s *Schema) []Conflict {
	var out []Conflict
	collectConflicts(s, &out)
	return out
}

func collectConflicts(s *Schema, out *[]Conflict) {
	if s == nil {
		return
	}
	*out = append(*out, s.Conflicts...)
	for _, name := range s.PropertyNames() {
		collectConflicts(s.Properties[name], out)
	}
	collectConflicts(s.Items, out)
}

// Equal reports whether two schemas describe the same structure and carry the
// same diagnostics.
func Equal(a, b *Schema) bool {
	return reflect.DeepEqual(a, b)
}

// String renders a compact single-line form, e.g.
// object{a:integer!,b:array[string]}. Required properties carry a "!".
func (s *Schema) String() string {
	var b strings.Builder
	writeSchema(&b, s)
	return b.String()
}

func writeSchema(b *strings.Builder, s *Schema) {
	if s == nil {
		b.WriteString("<nil>")
		return
	}
	b.WriteString(string(s.Kind))
	switch s.Kind {
	case KindArray:
		b.WriteByte('[')
		writeSchema(b, s.Items)
		b.WriteByte(']')
	case KindObject:
		b.WriteByte('{')
		for i, name := range s.PropertyNames() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(name)
			b.WriteByte(':')
			writeSchema(b, s.Properties[name])
			if s.IsRequired(name) {
				b.WriteByte('!')
			}
		}
		b.WriteByte('}')
	}
	if len(s.Conflicts) > 0 {
		b.WriteByte('~')
	}
}
