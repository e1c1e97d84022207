package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/workast-mcp/internal/logging"
)

// ToolInvocation is the audit record of one MCP tool call.
//
// Tool arguments are never recorded. ResourceID, the space or task a tool
// acted on, is only written when the AuditLogger includes resource IDs.
type ToolInvocation struct {
	InvocationID string
	Tool         string

	Service    string // spaces, tasks, users or tags
	Operation  string
	ResourceID string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts the record for a call of tool. The trace and span
// IDs are taken from the span in ctx, if any.
func NewToolInvocation(ctx context.Context, tool, service, operation string) *ToolInvocation {
	ti := &ToolInvocation{
		InvocationID: uuid.NewString(),
		Tool:         tool,
		Service:      service,
		Operation:    operation,
		StartTime:    time.Now(),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// WithResource sets the space or task ID the tool acted on.
func (ti *ToolInvocation) WithResource(id string) *ToolInvocation {
	ti.ResourceID = id
	return ti
}

// Finish stops the clock. A nil err marks the invocation successful.
func (ti *ToolInvocation) Finish(err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = err == nil
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the record as slog attributes, leaving out empty fields.
func (ti *ToolInvocation) LogAttrs(includeResourceIDs bool) []slog.Attr {
	attrs := []slog.Attr{
		logging.Invocation(ti.InvocationID),
		logging.Tool(ti.Tool),
		slog.Duration(logging.KeyDuration, ti.Duration),
		slog.Bool("success", ti.Success),
	}

	optional := []struct {
		key, value string
		include    bool
	}{
		{logging.KeyService, ti.Service, true},
		{logging.KeyOperation, ti.Operation, true},
		{"resource_id", ti.ResourceID, includeResourceIDs},
		{"trace_id", ti.TraceID, true},
		{"span_id", ti.SpanID, true},
		{logging.KeyError, ti.Error, true},
	}
	for _, o := range optional {
		if o.include && o.value != "" {
			attrs = append(attrs, slog.String(o.key, o.value))
		}
	}
	return attrs
}

// AuditLogger writes one line per finished tool invocation.
// A nil *AuditLogger discards everything.
type AuditLogger struct {
	logger *slog.Logger
	config AuditLoggingConfig
}

// NewAuditLogger returns an AuditLogger writing to logger, or to the default
// logger when logger is nil.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	return &AuditLogger{logger: logging.Component(logger, "audit"), config: config}
}

// LogToolInvocation logs ti as "tool_executed" at INFO or, when it failed,
// as "tool_failed" at WARN.
func (al *AuditLogger) LogToolInvocation(ctx context.Context, ti *ToolInvocation) {
	if al == nil || !al.config.Enabled {
		return
	}

	level, msg := slog.LevelInfo, "tool_executed"
	if !ti.Success {
		level, msg = slog.LevelWarn, "tool_failed"
	}
	al.logger.LogAttrs(ctx, level, msg, ti.LogAttrs(al.config.IncludeResourceIDs)...)
}
