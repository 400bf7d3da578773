// Package infer generalises repeated observations of the same data slot into
// a structural schema.
//
// The result is a pure function of the observation list: required sets and
// property unions do not depend on observation order, and only the kind
// chosen for a position with conflicting kinds does (first observed wins).
package infer

import (
	"sort"

	"github.com/usestring/apirecord/pkg/value"
)

// Kind is the structural kind of an inferred schema node.
type Kind string

const (
	// KindUnknown marks a position for which no non-null value was observed.
	KindUnknown Kind = "unknown"
	KindBoolean Kind = "boolean"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindString  Kind = "string"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Schema is the inferred description of every value seen at one position.
//
// Properties and Required are set for objects only; Required is sorted and
// always a subset of the Properties keys. Items is set for arrays only.
type Schema struct {
	Kind       Kind
	Properties map[string]*Schema
	Required   []string
	Items      *Schema
	Conflicts  []Conflict
}

// Conflict records that a later observation disagreed with the kind chosen
// for a position. The position keeps Kind; Conflicting contributed nothing.
type Conflict struct {
	Path        string `json:"path"`
	Kind        Kind   `json:"kind"`
	Conflicting Kind   `json:"conflicting"`
}

// Options controls inference behavior.
type Options struct {
	// StrictEmpty makes a single empty object observation clear the
	// required set at its position. When false (the default) empty objects
	// are ignored by the required intersection, like nulls.
	StrictEmpty bool
}

// DefaultOptions returns the default inference options.
func DefaultOptions() *Options {
	return &Options{StrictEmpty: false}
}

// Infer builds a schema from observations in arrival order.
// An empty list, or one holding only nulls, yields KindUnknown.
func Infer(values []value.Value) *Schema {
	return InferWithOptions(DefaultOptions(), values)
}

// InferWithOptions builds a schema with custom options.
func InferWithOptions(opts *Options, values []value.Value) *Schema {
	if opts == nil {
		opts = DefaultOptions()
	}
	return inferAt(opts, "$", values)
}

// Unknown returns the schema of a slot that was never observed.
func Unknown() *Schema {
	return &Schema{Kind: KindUnknown}
}

func inferAt(opts *Options, path string, values []value.Value) *Schema {
	present := make([]value.Value, 0, len(values))
	for _, v := range values {
		if v == nil || v.Kind() == value.KindNull {
			continue
		}
		present = append(present, v)
	}
	if len(present) == 0 {
		return Unknown()
	}

	schema := &Schema{Kind: kindOf(present[0])}

	matching := make([]value.Value, 0, len(present))
	seenConflict := make(map[Kind]bool)
	for _, v := range present {
		k := kindOf(v)
		switch {
		case k == schema.Kind:
			matching = append(matching, v)
		case isNumeric(k) && isNumeric(schema.Kind):
			// integer and number describe the same slot; widen.
			schema.Kind = KindNumber
			matching = append(matching, v)
		default:
			if !seenConflict[k] {
				seenConflict[k] = true
				schema.Conflicts = append(schema.Conflicts, Conflict{
					Path:        path,
					Kind:        schema.Kind,
					Conflicting: k,
				})
			}
		}
	}
	// widening can happen after a conflict was recorded
	for i := range schema.Conflicts {
		schema.Conflicts[i].Kind = schema.Kind
	}

	switch schema.Kind {
	case KindArray:
		var elems []value.Value
		for _, v := range matching {
			elems = append(elems, v.(value.Array)...)
		}
		schema.Items = inferAt(opts, path+"[]", elems)

	case KindObject:
		objs := make([]value.Object, 0, len(matching))
		for _, v := range matching {
			objs = append(objs, v.(value.Object))
		}
		inferObject(opts, path, objs, schema)
	}

	return schema
}

// inferObject fills Properties with the union of keys and Required with the
// intersection of key sets of every non-empty object.
func inferObject(opts *Options, path string, objs []value.Object, schema *Schema) {
	union := make(map[string]bool)
	var required map[string]bool
	sawEmpty := false

	for _, obj := range objs {
		for k := range obj {
			union[k] = true
		}
		if len(obj) == 0 {
			sawEmpty = true
			continue
		}
		if required == nil {
			required = make(map[string]bool, len(obj))
			for k := range obj {
				required[k] = true
			}
			continue
		}
		for k := range required {
			if _, ok := obj[k]; !ok {
				delete(required, k)
			}
		}
	}
	if opts.StrictEmpty && sawEmpty {
		required = nil
	}

	keys := make([]string, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	schema.Properties = make(map[string]*Schema, len(keys))
	schema.Required = make([]string, 0, len(required))
	for _, k := range keys {
		var atKey []value.Value
		for _, obj := range objs {
			if v, ok := obj[k]; ok {
				atKey = append(atKey, v)
			}
		}
		schema.Properties[k] = inferAt(opts, path+"."+k, atKey)
		if required[k] {
			schema.Required = append(schema.Required, k)
		}
	}
}

func kindOf(v value.Value) Kind {
	switch v.Kind() {
	case value.KindBoolean:
		return KindBoolean
	case value.KindInteger:
		return KindInteger
	case value.KindNumber:
		return KindNumber
	case value.KindString:
		return KindString
	case value.KindArray:
		return KindArray
	case value.KindObject:
		return KindObject
	default:
		return KindUnknown
	}
}

func isNumeric(k Kind) bool {
	return k == KindInteger || k == KindNumber
}
