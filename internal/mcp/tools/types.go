// Package tools implements the tool handlers exposed by the stdio servers.
package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool exposes the capabilities required by the dispatcher registration lifecycle.
type Tool interface {
	Definition() mcp.Tool
	Handle(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// markInteger narrows a numeric schema property to "integer".
// mcp-go only offers a generic number builder.
func markInteger(tool *mcp.Tool, name string) {
	if prop, ok := tool.InputSchema.Properties[name].(map[string]any); ok {
		prop["type"] = "integer"
	}
}
