package workast_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workast-mcp/internal/instrumentation"
	"github.com/teemow/workast-mcp/internal/server"
	"github.com/teemow/workast-mcp/internal/tools/batch"
	"github.com/teemow/workast-mcp/internal/tools/common"
)

func registerUserTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listUsersTool := mcp.NewTool("workast_list_users",
		mcp.WithDescription("List all users in the Workast workspace."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listUsersTool, common.InstrumentedToolHandlerWithService("workast_list_users",
		instrumentation.ServiceUsers, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			users, err := sc.Client().ListUsers(ctx)
			if err != nil {
				return common.ErrorResult("list users", err), nil
			}
			return common.JSONResult(users), nil
		}))

	getMeTool := mcp.NewTool("workast_get_me",
		mcp.WithDescription("Get the profile of the user the API token belongs to."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(getMeTool, common.InstrumentedToolHandlerWithService("workast_get_me",
		instrumentation.ServiceUsers, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			me, err := sc.Client().GetMe(ctx)
			if err != nil {
				return common.ErrorResult("get current user", err), nil
			}
			return common.JSONResult(me), nil
		}))
}

func registerTagTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	listTagsTool := mcp.NewTool("workast_list_tags",
		mcp.WithDescription("List all tags in the workspace."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listTagsTool, common.InstrumentedToolHandlerWithService("workast_list_tags",
		instrumentation.ServiceTags, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			tags, err := sc.Client().ListTags(ctx)
			if err != nil {
				return common.ErrorResult("list tags", err), nil
			}
			return common.JSONResult(tags), nil
		}))

	if readOnly {
		return
	}

	addTagsTool := mcp.NewTool("workast_add_tags_to_task",
		mcp.WithDescription("Add existing tags to a task."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID"),
		),
		mcp.WithString("tag_ids",
			mcp.Required(),
			mcp.Description("Comma-separated tag IDs, or an array of tag IDs"),
		),
	)
	s.AddTool(addTagsTool, common.InstrumentedToolHandlerWithService("workast_add_tags_to_task",
		instrumentation.ServiceTags, instrumentation.OperationTag, sc, handleAddTags(sc)))
}

func handleAddTags(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		taskID, err := common.RequiredStringArg(args, "task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tagIDs, err := batch.ParseStringOrArray(args["tag_ids"], "tag_ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		out, err := sc.Client().AddTagsToTask(ctx, taskID, tagIDs)
		if err != nil {
			return common.ErrorResult("add tags", err), nil
		}
		return common.JSONResult(out), nil
	}
}
