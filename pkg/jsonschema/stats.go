package jsonschema

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/usestring/apirecord/pkg/infer"
	"github.com/usestring/apirecord/pkg/value"
)

// FieldStat contains per-field statistics computed across the observations of one slot.
type FieldStat struct {
	Path          string   `json:"path"`                  // dotted path (e.g. "user.name", "items[].id")
	Type          string   `json:"type"`                  // inferred kind
	Frequency     float64  `json:"frequency"`             // fraction of parent objects containing the field
	Required      bool     `json:"required"`              // required in the inferred schema
	Nullable      bool     `json:"nullable"`              // at least one observation carried null
	DistinctCount int      `json:"distinct_count"`        // number of distinct non-null values observed
	Examples      []any    `json:"examples,omitempty"`    // up to 3 scalar example values
	Format        string   `json:"format,omitempty"`      // uuid, iso8601, url, email, enum
	EnumValues    []string `json:"enum_values,omitempty"` // distinct values when format is "enum"
	Conflicts     []string `json:"conflicts,omitempty"`   // kinds that lost to Type
}

const (
	defaultMaxDepth       = 5
	maxExamples           = 3
	minSamplesForFormat   = 5
	maxEnumDistinctValues = 10
)

var (
	uuidRegex    = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	iso8601Regex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}:\d{2})?`)
	urlRegex     = regexp.MustCompile(`^https?://`)
	emailRegex   = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
)

// ComputeFieldStats walks an inferred object schema and cross-references the
// observations it was inferred from. Returns a flat table in schema order.
func ComputeFieldStats(schema *infer.Schema, samples []value.Value) []FieldStat {
	if schema == nil || len(samples) == 0 {
		return nil
	}

	var stats []FieldStat
	switch schema.Kind {
	case infer.KindObject:
		walkSchema(schema, "", objectsOf(samples), 0, defaultMaxDepth, &stats)
	case infer.KindArray:
		if schema.Items != nil && schema.Items.Kind == infer.KindObject {
			walkSchema(schema.Items, "[]", objectsOf(elementsOf(samples)), 0, defaultMaxDepth, &stats)
		}
	}
	return stats
}

func walkSchema(schema *infer.Schema, path string, samples []value.Object, depth, maxDepth int, stats *[]FieldStat) {
	if depth > maxDepth {
		if path != "" {
			*stats = append(*stats, FieldStat{
				Path: path + " (truncated at depth limit)",
				Type: "...",
			})
		}
		return
	}

	for _, name := range schema.PropertyNames() {
		prop := schema.Properties[name]
		fieldPath := name
		if path != "" {
			fieldPath = joinPath(path, name)
		}

		*stats = append(*stats, computeSingleFieldStat(fieldPath, prop, schema.IsRequired(name), name, samples))

		switch {
		case prop.Kind == infer.KindObject && len(prop.Properties) > 0:
			walkSchema(prop, fieldPath, objectsOf(fieldValues(name, samples)), depth+1, maxDepth, stats)
		case prop.Kind == infer.KindArray && prop.Items != nil && prop.Items.Kind == infer.KindObject:
			items := objectsOf(elementsOf(fieldValues(name, samples)))
			walkSchema(prop.Items, fieldPath+"[]", items, depth+1, maxDepth, stats)
		}
	}
}

func joinPath(parent, name string) string {
	if parent == "[]" {
		return "[]." + name
	}
	return parent + "." + name
}

func computeSingleFieldStat(path string, schema *infer.Schema, required bool, name string, samples []value.Object) FieldStat {
	stat := FieldStat{
		Path:     path,
		Type:     string(schema.Kind),
		Required: required,
	}
	for _, c := range schema.Conflicts {
		stat.Conflicts = append(stat.Conflicts, string(c.Conflicting))
	}

	present := 0
	nulls := 0
	distinct := make(map[string]bool)
	var examples []any
	var strs []string

	for _, obj := range samples {
		v, ok := obj[name]
		if !ok {
			continue
		}
		present++
		if v == nil || v.Kind() == value.KindNull {
			nulls++
			continue
		}

		key := fmt.Sprintf("%s:%v", v.Kind(), value.ToAny(v))
		if !distinct[key] {
			distinct[key] = true
			// child stats describe containers
			switch v.(type) {
			case value.Object, value.Array:
			default:
				if len(examples) < maxExamples {
					examples = append(examples, value.ToAny(v))
				}
			}
		}
		if s, ok := v.(value.String); ok {
			strs = append(strs, string(s))
		}
	}

	if len(samples) > 0 {
		stat.Frequency = float64(present) / float64(len(samples))
	}
	stat.Nullable = nulls > 0
	stat.DistinctCount = len(distinct)
	stat.Examples = examples

	if schema.Kind == infer.KindString && len(strs) >= minSamplesForFormat {
		stat.Format, stat.EnumValues = detectFormat(strs)
	}
	return stat
}

// detectFormat detects common value formats for string fields.
func detectFormat(values []string) (string, []string) {
	if len(values) == 0 {
		return "", nil
	}

	formats := []struct {
		name string
		re   *regexp.Regexp
	}{
		{"uuid", uuidRegex},
		{"iso8601", iso8601Regex},
		{"url", urlRegex},
		{"email", emailRegex},
	}
	for _, f := range formats {
		if allMatch(f.re, values) {
			return f.name, nil
		}
	}

	distinct := make(map[string]bool)
	for _, v := range values {
		distinct[v] = true
	}
	if len(distinct) <= maxEnumDistinctValues {
		enumValues := make([]string, 0, len(distinct))
		for v := range distinct {
			enumValues = append(enumValues, v)
		}
		sort.Strings(enumValues)
		return "enum", enumValues
	}
	return "", nil
}

func allMatch(re *regexp.Regexp, values []string) bool {
	for _, v := range values {
		if !re.MatchString(v) {
			return false
		}
	}
	return true
}

func fieldValues(name string, samples []value.Object) []value.Value {
	var out []value.Value
	for _, obj := range samples {
		if v, ok := obj[name]; ok && v != nil {
			out = append(out, v)
		}
	}
	return out
}

func elementsOf(values []value.Value) []value.Value {
	var out []value.Value
	for _, v := range values {
		if arr, ok := v.(value.Array); ok {
			out = append(out, arr...)
		}
	}
	return out
}

func objectsOf(values []value.Value) []value.Object {
	var out []value.Object
	for _, v := range values {
		if obj, ok := v.(value.Object); ok {
			out = append(out, obj)
		}
	}
	return out
}
