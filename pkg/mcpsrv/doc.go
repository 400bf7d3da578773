// Package mcpsrv serves an apirecord recorder over the Model Context
// Protocol.
//
// Agents record observed HTTP traffic through tools and read back the
// inferred OpenAPI document:
//
//	rec := recorder.New()
//	server, err := mcpsrv.NewServer(rec)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//	server.Run(ctx)
//
// # Extension
//
// Custom tools use MCP SDK types directly and may reach the recorder
// through Deps:
//
//	mcpsrv.WithDepsTool(
//	    &mcp.Tool{Name: "count_operations", Description: "Count recorded operations"},
//	    func(d *mcpsrv.Deps) func(ctx context.Context, req *mcp.CallToolRequest, in struct{}) (*mcp.CallToolResult, CountOutput, error) {
//	        return func(ctx context.Context, req *mcp.CallToolRequest, in struct{}) (*mcp.CallToolResult, CountOutput, error) {
//	            return nil, CountOutput{Count: len(d.Recorder.Operations())}, nil
//	        }
//	    },
//	)
package mcpsrv
