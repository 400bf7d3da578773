package capture

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
)

// Mapper turns arbitrary JSON documents into exchange records with a jq
// expression. Every output of the expression must be a Record-shaped
// object, or an array of them.
type Mapper struct {
	expression string
	code       *gojq.Code
}

// NewMapper compiles a jq expression such as
// `.events[] | {method: .req.verb, url: .req.path, status: .res.code, response: {body: .res.json}}`.
func NewMapper(expression string) (*Mapper, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return &Mapper{expression: expression, code: code}, nil
}

// String returns the source expression.
func (m *Mapper) String() string {
	return m.expression
}

// Map runs the expression over one document and decodes every output.
func (m *Mapper) Map(doc json.RawMessage) ([]Record, error) {
	// gojq works on the plain encoding/json value model
	var input any
	if err := json.Unmarshal(doc, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var records []Record
	iter := m.code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			var haltErr *gojq.HaltError
			if errors.As(err, &haltErr) && haltErr.Value() == nil {
				break
			}
			return nil, fmt.Errorf("jq: %w", err)
		}
		if v == nil {
			continue
		}

		out, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("jq output: %w", err)
		}
		recs, err := decodeRecords(out)
		if err != nil {
			return nil, fmt.Errorf("jq output: %w", err)
		}
		records = append(records, recs...)
	}
	return records, nil
}
