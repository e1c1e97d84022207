package common

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// JSONResult renders v as indented JSON text. Raw upstream JSON is re-indented as is.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// MessageResult renders v as indented JSON text preceded by a message line.
func MessageResult(message string, v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(message + ":\n" + string(data))
}

// ErrorResult reports a failed action, e.g. ErrorResult("list spaces", err).
func ErrorResult(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}
