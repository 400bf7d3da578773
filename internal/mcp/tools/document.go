package tools

import (
	"bytes"
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/apirecord/pkg/recorder"
	"github.com/usestring/apirecord/pkg/types"
)

// RenderDocumentInput is the input for apirecord_render_document.
type RenderDocumentInput struct {
	Format string `json:"format,omitempty" jsonschema:"yaml or json (default: configured format, yaml)"`
}

// ToolRenderDocument renders the OpenAPI document of every recorded operation.
func ToolRenderDocument(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input RenderDocumentInput) (*sdkmcp.CallToolResult, types.RenderDocumentOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input RenderDocumentInput) (*sdkmcp.CallToolResult, types.RenderDocumentOutput, error) {
		format, err := d.DocumentFormat(input.Format)
		if err != nil {
			return nil, types.RenderDocumentOutput{}, err
		}

		text, err := RenderDocument(d, format)
		if err != nil {
			return nil, types.RenderDocumentOutput{}, err
		}
		return nil, types.RenderDocumentOutput{
			Format:     string(format),
			Operations: len(d.Recorder.Operations()),
			Document:   text,
		}, nil
	}
}

// RenderDocument serialises the current document.
func RenderDocument(d *Deps, format recorder.Format) (string, error) {
	var buf bytes.Buffer
	if err := d.Recorder.WriteDocument(&buf, format); err != nil {
		return "", fmt.Errorf("rendering document: %w", err)
	}
	return buf.String(), nil
}
