package jsonschema

import (
	"encoding/json"
	"testing"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/apirecord/pkg/infer"
	"github.com/usestring/apirecord/pkg/value"
)

func decodeAll(t *testing.T, docs ...string) []value.Value {
	t.Helper()
	out := make([]value.Value, 0, len(docs))
	for _, d := range docs {
		v, err := value.Decode([]byte(d))
		require.NoError(t, err, d)
		out = append(out, v)
	}
	return out
}

func marshal(t *testing.T, s *jsonschema.Schema) string {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	return string(data)
}

func TestFromInferred_NestedRequired(t *testing.T) {
	s := FromInferred(infer.Infer(decodeAll(t,
		`{"a": 1, "b": {"c": 2, "d": 3}}`,
		`{"a": 5, "b": {"c": 9}}`,
	)))

	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"a": {"type": "integer"},
			"b": {
				"type": "object",
				"properties": {"c": {"type": "integer"}, "d": {"type": "integer"}},
				"required": ["c"]
			}
		},
		"required": ["a", "b"]
	}`, marshal(t, s))
}

func TestFromInferred_PropertyOrderIsSorted(t *testing.T) {
	s := FromInferred(infer.Infer(decodeAll(t, `{"z": 1, "a": 2, "m": 3}`)))

	var keys []string
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"a", "m", "z"}, keys)
}

func TestFromInferred_UnknownFallsBackToEmptyObject(t *testing.T) {
	assert.JSONEq(t, `{"type":"object","properties":{}}`, marshal(t, FromInferred(infer.Unknown())))
	assert.JSONEq(t, `{"type":"object","properties":{}}`, marshal(t, FromInferred(nil)))

	s := FromInferred(infer.Infer(decodeAll(t, `{"tags": []}`)))
	tags, ok := s.Properties.Get("tags")
	require.True(t, ok)
	assert.Equal(t, "array", tags.Type)
	assert.Equal(t, "object", tags.Items.Type)
}

func TestFromInferred_NoRequiredOmitsKeyword(t *testing.T) {
	s := FromInferred(infer.Infer(decodeAll(t, `{"a": 1}`, `{"b": 2}`)))
	assert.Nil(t, s.Required)
	assert.NotContains(t, marshal(t, s), "required")
}

func TestFromInferred_ConflictExtension(t *testing.T) {
	inferred := infer.Infer(decodeAll(t, `{"v": 1}`, `{"v": "x"}`))

	s := FromInferred(inferred)
	v, ok := s.Properties.Get("v")
	require.True(t, ok)
	assert.Equal(t, "integer", v.Type)
	assert.Equal(t, []string{"string"}, v.Extras[ConflictExtension])
	assert.Contains(t, marshal(t, s), `"x-kind-conflicts":["string"]`)

	plain := FromInferredWithOptions(&Options{}, inferred)
	v, _ = plain.Properties.Get("v")
	assert.Nil(t, v.Extras)
}

func TestFromInferred_AdditionalProperties(t *testing.T) {
	closed := false
	s := FromInferredWithOptions(&Options{AdditionalProperties: &closed},
		infer.Infer(decodeAll(t, `{"a": {"b": 1}, "list": [{"c": true}]}`)))

	assert.Equal(t, jsonschema.FalseSchema, s.AdditionalProperties)
	a, _ := s.Properties.Get("a")
	assert.Equal(t, jsonschema.FalseSchema, a.AdditionalProperties)
	list, _ := s.Properties.Get("list")
	assert.Equal(t, jsonschema.FalseSchema, list.Items.AdditionalProperties)
}

func TestToMap(t *testing.T) {
	m, err := ToMap(FromInferred(infer.Infer(decodeAll(t, `{"id": 1}`))))
	require.NoError(t, err)
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, []any{"id"}, m["required"])
}

// Every non-empty, null-free observation without kind conflicts must validate
// against the schema inferred from it.
func TestFromInferred_ObservationsValidate(t *testing.T) {
	docs := []string{
		`{"id": 1, "name": "Alice", "tags": ["a"], "meta": {"x": 1.5, "y": true}}`,
		`{"id": 2, "tags": [], "meta": {"x": 2}}`,
		`{"id": 3, "name": "Carol", "items": [{"sku": "k1", "qty": 1}, {"sku": "k2"}], "meta": {"x": 0}}`,
	}
	obs := decodeAll(t, docs...)
	inferred := infer.Infer(obs)
	require.False(t, inferred.HasConflicts())

	schemaMap, err := ToMap(FromInferred(inferred))
	require.NoError(t, err)

	compiler := validator.NewCompiler()
	require.NoError(t, compiler.AddResource("schema.json", schemaMap))
	compiled, err := compiler.Compile("schema.json")
	require.NoError(t, err)

	for _, doc := range docs {
		var instance any
		require.NoError(t, json.Unmarshal([]byte(doc), &instance))
		assert.NoError(t, compiled.Validate(instance), doc)
	}

	var missing any
	require.NoError(t, json.Unmarshal([]byte(`{"name": "no id", "meta": {"x": 1}}`), &missing))
	assert.Error(t, compiled.Validate(missing))
}
