package value

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"strings"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/usestring/apirecord/pkg/contenttype"
)

// ErrUnsupportedContent is returned by DecodeBody for bodies that are not
// JSON, YAML or form-encoded.
var ErrUnsupportedContent = errors.New("unsupported content type")

// numberLiteral matches json.Number from both encoding/json and go-json.
type numberLiteral interface {
	String() string
	Int64() (int64, error)
	Float64() (float64, error)
}

// Decode parses a single JSON document. Number literals without a fraction or
// exponent that fit in an int64 become Int; every other number is a Float.
func Decode(data []byte) (Value, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding JSON: unexpected data after top-level value")
	}

	return FromAny(raw)
}

// FromAny converts a decoded Go value into a Value.
//
// Finite float32/float64 values without a fractional part become Int, the
// convention for data that went through encoding/json without UseNumber.
func FromAny(v any) (Value, error) {
	return fromAny(v, "$")
}

func fromAny(v any, path string) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case numberLiteral:
		return fromNumberLiteral(x, path)
	case int:
		return Int(x), nil
	case int8:
		return Int(x), nil
	case int16:
		return Int(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x)), nil
	case uint8:
		return Int(x), nil
	case uint16:
		return Int(x), nil
	case uint32:
		return Int(x), nil
	case uint64:
		return fromUint(x), nil
	case float32:
		return fromFloat(float64(x), path)
	case float64:
		return fromFloat(x, path)
	case []any:
		arr := make(Array, len(x))
		for i, item := range x {
			iv, err := fromAny(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			arr[i] = iv
		}
		return arr, nil
	case []string:
		arr := make(Array, len(x))
		for i, item := range x {
			arr[i] = String(item)
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(x))
		for k, item := range x {
			iv, err := fromAny(item, path+"."+k)
			if err != nil {
				return nil, err
			}
			obj[k] = iv
		}
		return obj, nil
	case map[string]string:
		obj := make(Object, len(x))
		for k, item := range x {
			obj[k] = String(item)
		}
		return obj, nil
	case map[string][]string:
		return fromMultiMap(x), nil
	case url.Values:
		return fromMultiMap(x), nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T at %s", ErrInvalidObservation, v, path)
	}
}

func fromNumberLiteral(n numberLiteral, path string) (Value, error) {
	lit := n.String()
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: bad number %q at %s", ErrInvalidObservation, lit, path)
	}
	return Float(f), nil
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

func fromFloat(f float64, path string) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: non-finite number at %s", ErrInvalidObservation, path)
	}
	if math.Trunc(f) == f && f >= math.MinInt64 && f < math.MaxInt64 {
		return Int(int64(f)), nil
	}
	return Float(f), nil
}

// fromMultiMap converts query-string style maps. Single values stay scalar.
func fromMultiMap(m map[string][]string) Object {
	obj := make(Object, len(m))
	for k, vals := range m {
		if len(vals) == 1 {
			obj[k] = String(vals[0])
			continue
		}
		arr := make(Array, len(vals))
		for i, s := range vals {
			arr[i] = String(s)
		}
		obj[k] = arr
	}
	return obj
}

// DecodeBody converts an HTTP body into a Value based on its content type.
// Empty bodies decode to Null. JSON, YAML and form-encoded bodies are
// supported; a missing content type is tried as JSON.
func DecodeBody(contentType string, data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Null{}, nil
	}

	if contentType == "" {
		v, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%w: untyped body is not JSON", ErrUnsupportedContent)
		}
		return v, nil
	}

	switch contenttype.Classify(contentType) {
	case contenttype.JSON:
		return Decode(data)

	case contenttype.YAML:
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding YAML: %w", err)
		}
		return FromAny(raw)

	case contenttype.Form:
		q, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, fmt.Errorf("decoding form body: %w", err)
		}
		return fromMultiMap(q), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}
}
