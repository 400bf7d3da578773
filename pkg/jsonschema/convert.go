// Package jsonschema renders inferred structural schemas as JSON Schema
// documents and computes per-field statistics over the observed values.
package jsonschema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/usestring/apirecord/pkg/infer"
)

// ConflictExtension is the vendor extension listing the kinds that were seen
// at a position but lost to the first-observed kind.
const ConflictExtension = "x-kind-conflicts"

// Options controls conversion.
type Options struct {
	// AdditionalProperties sets additionalProperties on every object schema.
	// Default: nil (not set)
	AdditionalProperties *bool
	// AnnotateConflicts adds ConflictExtension to positions with kind conflicts.
	// Default: true
	AnnotateConflicts bool
}

// DefaultOptions returns the default conversion options.
func DefaultOptions() *Options {
	return &Options{AnnotateConflicts: true}
}

// FromInferred converts an inferred schema with default options.
func FromInferred(s *infer.Schema) *jsonschema.Schema {
	return FromInferredWithOptions(DefaultOptions(), s)
}

// FromInferredWithOptions converts an inferred schema. Every object level
// carries its own required list. Unknown positions become an object with no
// properties.
func FromInferredWithOptions(opts *Options, s *infer.Schema) *jsonschema.Schema {
	if opts == nil {
		opts = DefaultOptions()
	}
	out := convert(opts, s)
	if opts.AdditionalProperties != nil {
		applyAdditionalProperties(out, *opts.AdditionalProperties)
	}
	return out
}

// Empty returns the fallback schema used where nothing structural was seen.
func Empty() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: jsonschema.NewProperties()}
}

func convert(opts *Options, s *infer.Schema) *jsonschema.Schema {
	if s == nil || s.Kind == infer.KindUnknown {
		return Empty()
	}

	out := &jsonschema.Schema{Type: string(s.Kind)}
	switch s.Kind {
	case infer.KindArray:
		out.Items = convert(opts, s.Items)
	case infer.KindObject:
		out.Properties = jsonschema.NewProperties()
		for _, name := range s.PropertyNames() {
			out.Properties.Set(name, convert(opts, s.Properties[name]))
		}
		if len(s.Required) > 0 {
			out.Required = append([]string(nil), s.Required...)
		}
	}

	if opts.AnnotateConflicts && len(s.Conflicts) > 0 {
		kinds := make([]string, 0, len(s.Conflicts))
		for _, c := range s.Conflicts {
			kinds = append(kinds, string(c.Conflicting))
		}
		out.Extras = map[string]any{ConflictExtension: kinds}
	}
	return out
}

// applyAdditionalProperties recursively sets additionalProperties on all object schemas.
func applyAdditionalProperties(schema *jsonschema.Schema, allowed bool) {
	if schema == nil {
		return
	}
	if schema.Type == "object" {
		if allowed {
			schema.AdditionalProperties = jsonschema.TrueSchema
		} else {
			schema.AdditionalProperties = jsonschema.FalseSchema
		}
		if schema.Properties != nil {
			for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
				applyAdditionalProperties(pair.Value, allowed)
			}
		}
	}
	applyAdditionalProperties(schema.Items, allowed)
}

// ToMap round-trips a schema through JSON into a generic map, the shape MCP
// structured output expects.
func ToMap(schema *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
