package workast_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workast-mcp/internal/instrumentation"
	"github.com/teemow/workast-mcp/internal/server"
	"github.com/teemow/workast-mcp/internal/tools/common"
)

// registerSpaceTools registers space tools. All of them are safe in read-only mode.
func registerSpaceTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listSpacesTool := mcp.NewTool("workast_list_spaces",
		mcp.WithDescription("List all Workast spaces (lists/projects). Returns names, IDs and metadata."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listSpacesTool, common.InstrumentedToolHandlerWithService("workast_list_spaces",
		instrumentation.ServiceSpaces, instrumentation.OperationList, sc, handleListSpaces(sc)))

	getSpaceTool := mcp.NewTool("workast_get_space",
		mcp.WithDescription("Get details of a specific Workast space by ID."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("space_id",
			mcp.Required(),
			mcp.Description("The space/list ID"),
		),
	)
	s.AddTool(getSpaceTool, common.InstrumentedToolHandlerWithService("workast_get_space",
		instrumentation.ServiceSpaces, instrumentation.OperationGet, sc, handleGetSpace(sc)))

	createSpaceTool := mcp.NewTool("workast_create_space",
		mcp.WithDescription("Create a new Workast space/list."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the space"),
		),
		mcp.WithString("description",
			mcp.Description("Optional description"),
		),
	)
	s.AddTool(createSpaceTool, common.InstrumentedToolHandlerWithService("workast_create_space",
		instrumentation.ServiceSpaces, instrumentation.OperationCreate, sc, handleCreateSpace(sc)))
}

func handleListSpaces(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		spaces, err := sc.Client().ListSpaces(ctx)
		if err != nil {
			return common.ErrorResult("list spaces", err), nil
		}
		if spaces == nil {
			return common.JSONResult([]any{}), nil
		}
		return common.JSONResult(spaces), nil
	}
}

func handleGetSpace(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		spaceID, err := common.RequiredStringArg(request.GetArguments(), "space_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		space, err := sc.Client().GetSpace(ctx, spaceID)
		if err != nil {
			return common.ErrorResult("get space", err), nil
		}
		return common.JSONResult(space), nil
	}
}

func handleCreateSpace(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		name, err := common.RequiredStringArg(args, "name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		space, err := sc.Client().CreateSpace(ctx, name, common.StringArg(args, "description"))
		if err != nil {
			return common.ErrorResult("create space", err), nil
		}
		return common.MessageResult("Space created successfully", space), nil
	}
}
