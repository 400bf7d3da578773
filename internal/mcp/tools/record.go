package tools

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/apirecord/pkg/recorder"
	"github.com/usestring/apirecord/pkg/types"
)

// RecordExchangeInput is the input for apirecord_record_exchange.
type RecordExchangeInput struct {
	Method              string `json:"method" jsonschema:"HTTP method, e.g. GET"`
	URL                 string `json:"url" jsonschema:"Request URL or path including the query string, e.g. /users/42?expand=team"`
	Status              int    `json:"status" jsonschema:"Response status code (100-599)"`
	RequestContentType  string `json:"request_content_type,omitempty" jsonschema:"Content-Type of the request body"`
	RequestBody         string `json:"request_body,omitempty" jsonschema:"Raw request body text"`
	ResponseContentType string `json:"response_content_type,omitempty" jsonschema:"Content-Type of the response body (default: application/json)"`
	ResponseBody        string `json:"response_body,omitempty" jsonschema:"Raw response body text"`
}

// ToolRecordExchange records one HTTP exchange into the ledger.
func ToolRecordExchange(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input RecordExchangeInput) (*sdkmcp.CallToolResult, types.RecordExchangeOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input RecordExchangeInput) (*sdkmcp.CallToolResult, types.RecordExchangeOutput, error) {
		if input.Method == "" || input.URL == "" {
			return nil, types.RecordExchangeOutput{}, ErrInvalidInput("method and url are required")
		}

		ex := recorder.Exchange{
			Method:              input.Method,
			URL:                 input.URL,
			Status:              input.Status,
			RequestContentType:  input.RequestContentType,
			ResponseContentType: input.ResponseContentType,
		}
		if input.RequestBody != "" {
			ex.RequestBody = []byte(input.RequestBody)
		}
		if input.ResponseBody != "" {
			ex.ResponseBody = []byte(input.ResponseBody)
			if ex.ResponseContentType == "" {
				ex.ResponseContentType = MimeJSON
			}
		}

		rt, err := d.Recorder.RecordExchange(ctx, ex)
		if err != nil {
			return nil, types.RecordExchangeOutput{}, WrapRecorderError(err)
		}

		method := strings.ToUpper(input.Method)
		return nil, types.RecordExchangeOutput{
			Endpoint:   rt.Template,
			Method:     method,
			Tag:        rt.Tag,
			Status:     input.Status,
			PathParams: rt.Params,
			Hint:       fmt.Sprintf("Use apirecord_get_operation(endpoint=%q, method=%q) to see the inferred schema.", rt.Template, method),
		}, nil
	}
}

// RecordObservationInput is the input for apirecord_record_observation.
type RecordObservationInput struct {
	Endpoint string `json:"endpoint" jsonschema:"Endpoint template, e.g. /users/{id}"`
	Method   string `json:"method" jsonschema:"HTTP method"`
	Slot     string `json:"slot" jsonschema:"Slot: requestBody, responseBody[<status>], pathParams or queryParams"`
	Value    any    `json:"value" jsonschema:"Observed JSON value; parameter slots take an object of name to value"`
}

// ToolRecordObservation appends a single observation to a slot.
func ToolRecordObservation(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input RecordObservationInput) (*sdkmcp.CallToolResult, types.RecordObservationOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input RecordObservationInput) (*sdkmcp.CallToolResult, types.RecordObservationOutput, error) {
		if input.Endpoint == "" || input.Method == "" {
			return nil, types.RecordObservationOutput{}, ErrInvalidInput("endpoint and method are required")
		}
		slot, err := recorder.ParseSlot(input.Slot)
		if err != nil {
			return nil, types.RecordObservationOutput{}, ErrInvalidInput(err.Error())
		}

		obs, err := d.Recorder.RecordObservation(input.Endpoint, input.Method, slot, input.Value)
		if err != nil {
			return nil, types.RecordObservationOutput{}, WrapRecorderError(err)
		}

		return nil, types.RecordObservationOutput{
			Seq:      obs.Seq,
			Endpoint: obs.Key.Endpoint,
			Method:   obs.Key.Method,
			Slot:     obs.Slot.String(),
		}, nil
	}
}
