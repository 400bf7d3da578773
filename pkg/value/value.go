// Package value defines the closed set of JSON-like values that observations
// are made of. Every observation recorded by apirecord is converted into one
// of the concrete Value types below before it reaches the ledger, so the
// inference engines only ever switch over a fixed alphabet.
package value

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidObservation is returned when a Go value cannot be represented in
// the Value alphabet (channels, structs, NaN, non-string map keys, ...).
var ErrInvalidObservation = errors.New("invalid observation")

// Kind is the runtime classification of a Value.
type Kind string

const (
	KindNull    Kind = "null"
	KindBoolean Kind = "boolean"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindString  Kind = "string"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Value is one JSON-like value. The set of implementations is closed.
type Value interface {
	Kind() Kind
	isValue()
}

// Null is the JSON null.
type Null struct{}

// Bool is a JSON boolean.
type Bool bool

// Int is a JSON number written without fraction or exponent.
type Int int64

// Float is any other JSON number.
type Float float64

// String is a JSON string.
type String string

// Array is an ordered list of values.
type Array []Value

// Object maps member names to values. Member order is not significant.
type Object map[string]Value

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBoolean }
func (Int) Kind() Kind    { return KindInteger }
func (Float) Kind() Kind  { return KindNumber }
func (String) Kind() Kind { return KindString }
func (Array) Kind() Kind  { return KindArray }
func (Object) Kind() Kind { return KindObject }

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Int) isValue()    {}
func (Float) isValue()  {}
func (String) isValue() {}
func (Array) isValue()  {}
func (Object) isValue() {}

// IsEmpty reports whether v is structurally empty: null, an empty array or an
// empty object. Empty observations never contribute to a required set.
func IsEmpty(v Value) bool {
	switch x := v.(type) {
	case nil, Null:
		return true
	case Array:
		return len(x) == 0
	case Object:
		return len(x) == 0
	default:
		return false
	}
}

// Keys returns the member names of o in sorted order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToAny converts v into plain Go values: nil, bool, int64, float64, string,
// []any and map[string]any.
func ToAny(v Value) any {
	switch x := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(x)
	case Int:
		return int64(x)
	case Float:
		return float64(x)
	case String:
		return string(x)
	case Array:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = ToAny(item)
		}
		return out
	case Object:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = ToAny(item)
		}
		return out
	default:
		return nil
	}
}

// Validate checks that v and everything nested in it belongs to the alphabet:
// no nil members and no NaN or infinite numbers.
func Validate(v Value) error {
	return validateAt(v, "$")
}

func validateAt(v Value, path string) error {
	switch x := v.(type) {
	case nil:
		return fmt.Errorf("%w: nil value at %s", ErrInvalidObservation, path)
	case Float:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("%w: non-finite number at %s", ErrInvalidObservation, path)
		}
	case Array:
		for i, item := range x {
			if err := validateAt(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case Object:
		for k, item := range x {
			if err := validateAt(item, path+"."+k); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	switch x := v.(type) {
	case Array:
		out := make(Array, len(x))
		for i, item := range x {
			out[i] = Clone(item)
		}
		return out
	case Object:
		out := make(Object, len(x))
		for k, item := range x {
			out[k] = Clone(item)
		}
		return out
	default:
		return v
	}
}
