package mcp

import (
	"context"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/apirecord/internal/mcp/tools"
)

const documentPrefix = "apirecord://document/"

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: tools.DocumentURI,
		Name:        "OpenAPI Document",
		Description: "OpenAPI 3.0 document of every recorded operation, as yaml or json. Grows with each recorded exchange; use apirecord_get_operation for a single operation.",
		MIMEType:    tools.MimeYAML,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant", "user"},
			Priority: 0.6,
		},
	}, s.handleResourceDocument)
}

func (s *Server) handleResourceDocument(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	uri := req.Params.URI
	requested, ok := strings.CutPrefix(uri, documentPrefix)
	if !ok || requested == "" || strings.Contains(requested, "/") {
		return nil, sdkmcp.ResourceNotFoundError(uri)
	}

	format, err := s.deps.DocumentFormat(requested)
	if err != nil {
		return nil, err
	}
	text, err := tools.RenderDocument(s.deps, format)
	if err != nil {
		return nil, err
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: tools.MimeFor(format),
				Text:     text,
			},
		},
	}, nil
}
