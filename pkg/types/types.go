// Package types provides the input-independent result types of the
// apirecord MCP tools. They are designed for external consumption.
package types

import (
	"encoding/json"

	"github.com/usestring/apirecord/pkg/jsonschema"
)

// ToAny round-trips a typed value through JSON to produce an untyped any.
// Use this when a tool output field must be any (instead of json.RawMessage)
// to satisfy the MCP SDK's schema validation.
func ToAny(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResourceRef points to an MCP resource.
type ResourceRef struct {
	URI  string `json:"uri"`
	MIME string `json:"mime"`
	Hint string `json:"hint,omitempty"`
}

// RecordExchangeOutput reports where an exchange was recorded.
type RecordExchangeOutput struct {
	Endpoint   string            `json:"endpoint"`
	Method     string            `json:"method"`
	Tag        string            `json:"tag"`
	Status     int               `json:"status"`
	PathParams map[string]string `json:"path_params,omitempty"`
	Hint       string            `json:"hint,omitempty"`
}

// RecordObservationOutput reports a single appended observation.
type RecordObservationOutput struct {
	Seq      uint32 `json:"seq"`
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`
	Slot     string `json:"slot"`
}

// OperationSummary is a compact view of one recorded operation.
type OperationSummary struct {
	Endpoint     string `json:"endpoint"`
	Method       string `json:"method"`
	Tag          string `json:"tag,omitempty"`
	Observations int    `json:"observations"`
	Statuses     []int  `json:"statuses,omitzero"`
	HasRequest   bool   `json:"has_request"`
}

// ListOperationsOutput lists recorded operations.
type ListOperationsOutput struct {
	Operations []OperationSummary `json:"operations,omitzero"`
	Total      int                `json:"total"`
	Hint       string             `json:"hint,omitempty"`
}

// ConflictSummary is one kind conflict found while inferring an operation.
type ConflictSummary struct {
	Location    string `json:"location"` // requestBody, responseBody[200], path, query
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	Conflicting string `json:"conflicting"`
}

// GetOperationOutput holds the inferred OpenAPI operation object.
type GetOperationOutput struct {
	Endpoint  string            `json:"endpoint"`
	Method    string            `json:"method"`
	Operation any               `json:"operation,omitempty"`
	Conflicts []ConflictSummary `json:"conflicts,omitzero"`
	Resource  *ResourceRef      `json:"resource,omitempty"`
}

// FieldStatsOutput holds per-field statistics of one slot.
type FieldStatsOutput struct {
	Endpoint string                 `json:"endpoint"`
	Method   string                 `json:"method"`
	Slot     string                 `json:"slot"`
	Fields   []jsonschema.FieldStat `json:"fields,omitzero"`
}

// RenderDocumentOutput holds a rendered document.
type RenderDocumentOutput struct {
	Format     string `json:"format"`
	Operations int    `json:"operations"`
	Document   string `json:"document"`
}
