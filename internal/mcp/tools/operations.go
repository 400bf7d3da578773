package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/apirecord/internal/catalog"
	"github.com/usestring/apirecord/pkg/recorder"
	"github.com/usestring/apirecord/pkg/types"
)

// ListOperationsInput is the input for apirecord_list_operations.
type ListOperationsInput struct {
	Tag            string `json:"tag,omitempty" jsonschema:"Only operations with this tag (case-insensitive)"`
	EndpointPrefix string `json:"endpoint_prefix,omitempty" jsonschema:"Only endpoints starting with this prefix, e.g. /users"`
}

// ToolListOperations lists the operations recorded so far.
func ToolListOperations(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListOperationsInput) (*sdkmcp.CallToolResult, types.ListOperationsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListOperationsInput) (*sdkmcp.CallToolResult, types.ListOperationsOutput, error) {
		l := d.Recorder.Ledger()

		var out types.ListOperationsOutput
		for _, op := range d.Recorder.Operations() {
			if input.Tag != "" && !strings.EqualFold(op.Tag, input.Tag) {
				continue
			}
			if input.EndpointPrefix != "" && !strings.HasPrefix(op.Endpoint, input.EndpointPrefix) {
				continue
			}
			summary := types.OperationSummary{
				Endpoint:     op.Endpoint,
				Method:       op.Method,
				Tag:          op.Tag,
				Observations: op.Observations,
			}
			if snap, ok := l.Snapshot(op.Endpoint, op.Method); ok {
				summary.Statuses = snap.StatusCodes()
				summary.HasRequest = len(snap.RequestBodies) > 0
			}
			out.Operations = append(out.Operations, summary)
		}
		out.Total = len(out.Operations)

		if out.Total == 0 {
			out.Hint = "No operations recorded yet. Use apirecord_record_exchange to add observed traffic."
		} else {
			out.Hint = "Use apirecord_get_operation(endpoint, method) for the inferred schema of one operation."
		}
		return nil, out, nil
	}
}

// GetOperationInput is the input for apirecord_get_operation.
type GetOperationInput struct {
	Endpoint string `json:"endpoint" jsonschema:"Endpoint template, e.g. /users/{id}"`
	Method   string `json:"method" jsonschema:"HTTP method"`
}

// ToolGetOperation returns the inferred OpenAPI operation object.
func ToolGetOperation(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetOperationInput) (*sdkmcp.CallToolResult, types.GetOperationOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetOperationInput) (*sdkmcp.CallToolResult, types.GetOperationOutput, error) {
		if input.Endpoint == "" || input.Method == "" {
			return nil, types.GetOperationOutput{}, ErrInvalidInput("endpoint and method are required")
		}

		frag, err := d.Recorder.OperationSchema(input.Endpoint, input.Method)
		if err != nil {
			return nil, types.GetOperationOutput{}, WrapRecorderError(err)
		}
		operation, err := types.ToAny(frag)
		if err != nil {
			return nil, types.GetOperationOutput{}, fmt.Errorf("serializing operation: %w", err)
		}

		format, _ := d.DocumentFormat("")
		return nil, types.GetOperationOutput{
			Endpoint:  input.Endpoint,
			Method:    strings.ToUpper(input.Method),
			Operation: operation,
			Conflicts: ConflictSummaries(frag.Diagnostics),
			Resource: &types.ResourceRef{
				URI:  DocumentResourceURI(format),
				MIME: MimeFor(format),
				Hint: "Full document with every recorded operation",
			},
		}, nil
	}
}

// ConflictSummaries flattens fragment diagnostics in a stable order.
func ConflictSummaries(diag catalog.Diagnostics) []types.ConflictSummary {
	var out []types.ConflictSummary
	for _, c := range diag.RequestBody {
		out = append(out, types.ConflictSummary{
			Location:    "requestBody",
			Path:        c.Path,
			Kind:        string(c.Kind),
			Conflicting: string(c.Conflicting),
		})
	}

	statuses := make([]string, 0, len(diag.Responses))
	for status := range diag.Responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		for _, c := range diag.Responses[status] {
			out = append(out, types.ConflictSummary{
				Location:    "responseBody[" + status + "]",
				Path:        c.Path,
				Kind:        string(c.Kind),
				Conflicting: string(c.Conflicting),
			})
		}
	}

	for _, c := range diag.Parameters {
		if len(c.Kinds) < 2 {
			continue
		}
		rest := make([]string, 0, len(c.Kinds)-1)
		for _, k := range c.Kinds[1:] {
			rest = append(rest, string(k))
		}
		out = append(out, types.ConflictSummary{
			Location:    string(c.In),
			Path:        c.Name,
			Kind:        string(c.Kinds[0]),
			Conflicting: strings.Join(rest, ","),
		})
	}
	return out
}

// FieldStatsInput is the input for apirecord_field_stats.
type FieldStatsInput struct {
	Endpoint string `json:"endpoint" jsonschema:"Endpoint template, e.g. /users/{id}"`
	Method   string `json:"method" jsonschema:"HTTP method"`
	Slot     string `json:"slot,omitempty" jsonschema:"Slot to analyze (default: responseBody[200]); also requestBody, pathParams, queryParams"`
}

// ToolFieldStats returns per-field statistics for one slot.
func ToolFieldStats(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FieldStatsInput) (*sdkmcp.CallToolResult, types.FieldStatsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input FieldStatsInput) (*sdkmcp.CallToolResult, types.FieldStatsOutput, error) {
		if input.Endpoint == "" || input.Method == "" {
			return nil, types.FieldStatsOutput{}, ErrInvalidInput("endpoint and method are required")
		}
		slotName := input.Slot
		if slotName == "" {
			slotName = recorder.ResponseBody(200).String()
		}
		slot, err := recorder.ParseSlot(slotName)
		if err != nil {
			return nil, types.FieldStatsOutput{}, ErrInvalidInput(err.Error())
		}

		stats, err := d.Recorder.FieldStats(input.Endpoint, input.Method, slot)
		if err != nil {
			return nil, types.FieldStatsOutput{}, WrapRecorderError(err)
		}
		return nil, types.FieldStatsOutput{
			Endpoint: input.Endpoint,
			Method:   strings.ToUpper(input.Method),
			Slot:     slot.String(),
			Fields:   stats,
		}, nil
	}
}
