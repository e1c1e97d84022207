package workast_tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workast-mcp/internal/server"
	"github.com/teemow/workast-mcp/internal/tools/batch"
	"github.com/teemow/workast-mcp/internal/workast"
)

// RegisterWorkastTools registers every Workast tool allowed by readOnly.
func RegisterWorkastTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if s == nil || sc == nil {
		return errors.New("failed to register Workast tools: server and context are required")
	}

	registerSpaceTools(s, sc)
	registerTaskTools(s, sc, readOnly)
	registerUserTools(s, sc)
	registerTagTools(s, sc, readOnly)
	return nil
}

// checkCredentials fails fast with a tool error when no API token is configured.
func checkCredentials(sc *server.ServerContext) *mcp.CallToolResult {
	if err := sc.Client().CheckCredentials(); err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return nil
}

// taskIDsArg parses the task_id argument of the batch tools.
func taskIDsArg(request mcp.CallToolRequest) ([]string, error) {
	return batch.ParseStringOrArray(request.GetArguments()["task_id"], "task_id")
}

// batchTaskHandler builds a handler that applies fn to every id in task_id
// and reports per-id results.
func batchTaskHandler(sc *server.ServerContext, fn func(ctx context.Context, c *workast.Client, id string) (json.RawMessage, error)) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := taskIDsArg(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if res := checkCredentials(sc); res != nil {
			return res, nil
		}

		results := batch.ProcessBatch(ctx, ids, func(ctx context.Context, id string) (json.RawMessage, error) {
			return fn(ctx, sc.Client(), id)
		})
		return mcp.NewToolResultText(batch.FormatResults(results)), nil
	}
}
