package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	AddTool(srv, &sdkmcp.Tool{
		Name:        "apirecord_record_exchange",
		Description: "Record one observed HTTP exchange. The URL path is matched to an endpoint template (e.g. /users/42 -> /users/{id}); the response body is recorded under its status, and for success statuses the request body, path parameters and query parameters are recorded too. Bodies are raw text decoded by content type (JSON, YAML, form). Returns the matched endpoint and tag.",
	}, ToolRecordExchange(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "apirecord_record_observation",
		Description: "Append one JSON value to a slot of an endpoint template without routing. Slots: requestBody, responseBody[<status>], pathParams, queryParams (parameter slots take an object). Use this when the endpoint template is already known.",
	}, ToolRecordObservation(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "apirecord_list_operations",
		Description: "List recorded operations with their tag, observation count and observed response statuses. Optional tag and endpoint_prefix filters.",
	}, ToolListOperations(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "apirecord_get_operation",
		Description: "Get the OpenAPI operation object inferred from everything recorded for an endpoint and method: tags, parameters (required when present in every observation), request body schema and one response per status. Kind conflicts between observations are listed separately.",
	}, ToolGetOperation(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "apirecord_field_stats",
		Description: "Per-field statistics for one slot of an operation: frequency, required, nullable, distinct count, examples and detected formats (uuid, iso8601, url, email, enum). Use after apirecord_get_operation to understand why a field is optional.",
	}, ToolFieldStats(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "apirecord_render_document",
		Description: "Render the complete OpenAPI 3.0 document of every recorded operation as YAML or JSON text.",
	}, ToolRenderDocument(d))
}
