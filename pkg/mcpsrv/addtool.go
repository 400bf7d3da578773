package mcpsrv

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/apirecord/internal/mcp/tools"
)

// AddTool registers a tool after checking that the zero value of its output
// type passes the schema the SDK infers for it. Nil slices marshal as null
// and fail an array schema at call time; this surfaces them at startup.
//
// Use this instead of [sdkmcp.AddTool] to get the additional check.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	tools.AddTool(srv, t, h)
}
