package common

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workast-mcp/internal/instrumentation"
	"github.com/teemow/workast-mcp/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with the invocation timeout,
// a tool span, metrics and audit logging.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return InstrumentedToolHandlerWithService(toolName, "", "", sc, handler)
}

// InstrumentedToolHandlerWithService is like InstrumentedToolHandler but also
// labels the invocation with the Workast resource family (spaces, tasks,
// users, tags) and operation it performs.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandlerWithService("my_tool", "tasks", "list", sc, handler))
func InstrumentedToolHandlerWithService(
	toolName string,
	serviceName string,
	operation string,
	sc *server.ServerContext,
	handler mcpserver.ToolHandlerFunc,
) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, cancel := context.WithTimeout(ctx, sc.Timeout())
		defer cancel()

		args := request.GetArguments()
		spaceID := StringArg(args, "space_id")
		taskID := StringArg(args, "task_id")

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().
				WithOperation(operation).
				WithSpace(spaceID).
				WithTask(taskID).
				Build()...,
		)
		defer span.End()

		invocation := instrumentation.NewToolInvocation(ctx, toolName, serviceName, operation)
		if taskID != "" {
			invocation.WithResource(taskID)
		} else if spaceID != "" {
			invocation.WithResource(spaceID)
		}

		result, err := handler(ctx, request)

		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = errors.New(resultText(result))
		}
		invocation.Finish(failure)
		if failure != nil {
			instrumentation.SetSpanError(span, failure)
		} else {
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, serviceName, invocation.Status(), invocation.Duration)
		sc.AuditLogger().LogToolInvocation(ctx, invocation)

		return result, err
	}
}

// resultText returns the text of the first text content of result.
func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return "tool returned an error result"
}
