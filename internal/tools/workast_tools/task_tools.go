package workast_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workast-mcp/internal/instrumentation"
	"github.com/teemow/workast-mcp/internal/server"
	"github.com/teemow/workast-mcp/internal/tools/common"
	"github.com/teemow/workast-mcp/internal/workast"
)

// defaultListLimit caps workast_list_tasks results when no limit is given.
const defaultListLimit = 25

// registerTaskTools registers task tools. Tools that change or remove
// existing tasks are only registered when readOnly is false.
func registerTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	listTasksTool := mcp.NewTool("workast_list_tasks",
		mcp.WithDescription("Search/list tasks. Filter by space, status, assignee, or text query. "+
			"Without space_id every non-archived space you participate in is searched. "+
			"Set include_subtasks=true to also search within subtasks (fetches full task details, slower)."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("space_id",
			mcp.Description("Filter by space/list ID"),
		),
		mcp.WithString("query",
			mcp.Description("Case-insensitive text matched against task title and description"),
		),
		mcp.WithString("status",
			mcp.Description("Task status filter"),
			mcp.Enum(string(workast.StatusActive), string(workast.StatusDone), string(workast.StatusAll)),
			mcp.DefaultString(string(workast.StatusActive)),
		),
		mcp.WithString("assignee",
			mcp.Description("Filter by assignee user ID"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default 25, 0 for no limit, must not be negative)"),
			mcp.DefaultNumber(defaultListLimit),
		),
		mcp.WithBoolean("include_subtasks",
			mcp.Description("Include subtasks in results (slower, fetches each task's details)"),
			mcp.DefaultBool(false),
		),
	)
	s.AddTool(listTasksTool, common.InstrumentedToolHandlerWithService("workast_list_tasks",
		instrumentation.ServiceTasks, instrumentation.OperationSearch, sc, handleListTasks(sc)))

	getTasksTool := mcp.NewTool("workast_get_tasks",
		mcp.WithDescription("Get full details, including subtasks, of one or more tasks."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID (string) or array of task IDs to retrieve"),
		),
	)
	s.AddTool(getTasksTool, common.InstrumentedToolHandlerWithService("workast_get_tasks",
		instrumentation.ServiceTasks, instrumentation.OperationGet, sc, handleGetTasks(sc)))

	createTaskTool := mcp.NewTool("workast_create_task",
		mcp.WithDescription("Create a new task in a Workast space."),
		mcp.WithString("space_id",
			mcp.Required(),
			mcp.Description("The space/list ID to create the task in"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Task name/title"),
		),
		mcp.WithString("description",
			mcp.Description("Task description"),
		),
		mcp.WithString("due_date",
			mcp.Description("Due date in ISO 8601, e.g. 2025-03-01"),
		),
		mcp.WithString("assignee",
			mcp.Description("User ID to assign"),
		),
	)
	s.AddTool(createTaskTool, common.InstrumentedToolHandlerWithService("workast_create_task",
		instrumentation.ServiceTasks, instrumentation.OperationCreate, sc, handleCreateTask(sc)))

	createSubtaskTool := mcp.NewTool("workast_create_subtask",
		mcp.WithDescription("Create a subtask under an existing task."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The parent task ID"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Subtask name"),
		),
	)
	s.AddTool(createSubtaskTool, common.InstrumentedToolHandlerWithService("workast_create_subtask",
		instrumentation.ServiceTasks, instrumentation.OperationCreate, sc, handleCreateSubtask(sc)))

	addCommentTool := mcp.NewTool("workast_add_comment",
		mcp.WithDescription("Add a comment to a task."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Comment text"),
		),
	)
	s.AddTool(addCommentTool, common.InstrumentedToolHandlerWithService("workast_add_comment",
		instrumentation.ServiceTasks, instrumentation.OperationComment, sc, handleAddComment(sc)))

	if readOnly {
		return
	}

	updateTaskTool := mcp.NewTool("workast_update_task",
		mcp.WithDescription("Update an existing task (name, description, due date). Only the given fields change."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID"),
		),
		mcp.WithString("name",
			mcp.Description("New task name"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("due_date",
			mcp.Description("New due date in ISO 8601"),
		),
	)
	s.AddTool(updateTaskTool, common.InstrumentedToolHandlerWithService("workast_update_task",
		instrumentation.ServiceTasks, instrumentation.OperationUpdate, sc, handleUpdateTask(sc)))

	completeTasksTool := mcp.NewTool("workast_complete_tasks",
		mcp.WithDescription("Mark one or more tasks as complete/done."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID (string) or array of task IDs to complete"),
		),
	)
	s.AddTool(completeTasksTool, common.InstrumentedToolHandlerWithService("workast_complete_tasks",
		instrumentation.ServiceTasks, instrumentation.OperationComplete, sc,
		batchTaskHandler(sc, func(ctx context.Context, c *workast.Client, id string) (json.RawMessage, error) {
			return c.CompleteTask(ctx, id)
		})))

	reopenTasksTool := mcp.NewTool("workast_reopen_tasks",
		mcp.WithDescription("Reopen one or more completed tasks (mark as not done)."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID (string) or array of task IDs to reopen"),
		),
	)
	s.AddTool(reopenTasksTool, common.InstrumentedToolHandlerWithService("workast_reopen_tasks",
		instrumentation.ServiceTasks, instrumentation.OperationReopen, sc,
		batchTaskHandler(sc, func(ctx context.Context, c *workast.Client, id string) (json.RawMessage, error) {
			return c.ReopenTask(ctx, id)
		})))

	deleteTasksTool := mcp.NewTool("workast_delete_tasks",
		mcp.WithDescription("Delete one or more tasks."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID (string) or array of task IDs to delete"),
		),
	)
	s.AddTool(deleteTasksTool, common.InstrumentedToolHandlerWithService("workast_delete_tasks",
		instrumentation.ServiceTasks, instrumentation.OperationDelete, sc,
		batchTaskHandler(sc, func(ctx context.Context, c *workast.Client, id string) (json.RawMessage, error) {
			return nil, c.DeleteTask(ctx, id)
		})))

	assignTaskTool := mcp.NewTool("workast_assign_task",
		mcp.WithDescription("Assign a user to a task."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID"),
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The user ID to assign"),
		),
	)
	s.AddTool(assignTaskTool, common.InstrumentedToolHandlerWithService("workast_assign_task",
		instrumentation.ServiceTasks, instrumentation.OperationAssign, sc, handleAssignment(sc, true)))

	unassignTaskTool := mcp.NewTool("workast_unassign_task",
		mcp.WithDescription("Remove a user assignment from a task."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID"),
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The user ID to unassign"),
		),
	)
	s.AddTool(unassignTaskTool, common.InstrumentedToolHandlerWithService("workast_unassign_task",
		instrumentation.ServiceTasks, instrumentation.OperationUnassign, sc, handleAssignment(sc, false)))
}

func handleListTasks(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		limit, err := common.IntArg(args, "limit", defaultListLimit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if limit < 0 {
			return mcp.NewToolResultError(fmt.Sprintf("limit must be 0 or greater, got %d", limit)), nil
		}

		params := workast.SearchParams{
			Status:          workast.Status(common.StringArg(args, "status")),
			SpaceID:         common.StringArg(args, "space_id"),
			Assignee:        common.StringArg(args, "assignee"),
			Query:           common.StringArg(args, "query"),
			Limit:           limit,
			IncludeSubtasks: common.BoolArg(args, "include_subtasks", false),
		}

		tasks, err := sc.Searcher().Search(ctx, params)
		if err != nil {
			return common.ErrorResult("list tasks", err), nil
		}
		return common.JSONResult(tasks), nil
	}
}

func handleGetTasks(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return batchTaskHandler(sc, func(ctx context.Context, c *workast.Client, id string) (json.RawMessage, error) {
		task, err := c.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		return json.Marshal(task)
	})
}

func handleCreateTask(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		spaceID, err := common.RequiredStringArg(args, "space_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		name, err := common.RequiredStringArg(args, "name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		task, err := sc.Client().CreateTask(ctx, spaceID, workast.TaskInput{
			Name:        name,
			Description: common.StringArg(args, "description"),
			DueDate:     common.StringArg(args, "due_date"),
			Assignee:    common.StringArg(args, "assignee"),
		})
		if err != nil {
			return common.ErrorResult("create task", err), nil
		}
		return common.MessageResult("Task created successfully", task), nil
	}
}

func handleCreateSubtask(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		taskID, err := common.RequiredStringArg(args, "task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		name, err := common.RequiredStringArg(args, "name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		subtask, err := sc.Client().CreateSubtask(ctx, taskID, name)
		if err != nil {
			return common.ErrorResult("create subtask", err), nil
		}
		return common.MessageResult("Subtask created successfully", subtask), nil
	}
}

func handleAddComment(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		taskID, err := common.RequiredStringArg(args, "task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text, err := common.RequiredStringArg(args, "text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		comment, err := sc.Client().AddComment(ctx, taskID, text)
		if err != nil {
			return common.ErrorResult("add comment", err), nil
		}
		return common.JSONResult(comment), nil
	}
}

func handleUpdateTask(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		taskID, err := common.RequiredStringArg(args, "task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		input := workast.TaskInput{
			Name:        common.StringArg(args, "name"),
			Description: common.StringArg(args, "description"),
			DueDate:     common.StringArg(args, "due_date"),
		}
		if input.Name == "" && input.Description == "" && input.DueDate == "" {
			return mcp.NewToolResultError("at least one of name, description or due_date is required"), nil
		}

		task, err := sc.Client().UpdateTask(ctx, taskID, input)
		if err != nil {
			return common.ErrorResult("update task", err), nil
		}
		return common.MessageResult("Task updated successfully", task), nil
	}
}

// handleAssignment serves both assign (add true) and unassign (add false).
func handleAssignment(sc *server.ServerContext, add bool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		taskID, err := common.RequiredStringArg(args, "task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		userID, err := common.RequiredStringArg(args, "user_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if add {
			out, err := sc.Client().AssignTask(ctx, taskID, userID)
			if err != nil {
				return common.ErrorResult("assign task", err), nil
			}
			return common.JSONResult(out), nil
		}

		out, err := sc.Client().UnassignTask(ctx, taskID, userID)
		if err != nil {
			return common.ErrorResult("unassign task", err), nil
		}
		return common.JSONResult(out), nil
	}
}
