package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span started here.
const TracerName = "github.com/teemow/workast-mcp"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrReadOnly  = "mcp.read_only"
	SpanAttrOperation = "workast.operation"
	SpanAttrStage     = "workast.search.stage"
	SpanAttrSpaceID   = "workast.space_id"
	SpanAttrTaskID    = "workast.task_id"

	// SpanAttrCount is the number of items a search stage produced.
	SpanAttrCount = "workast.count"
)

// SpanAttributeBuilder collects tool span attributes, leaving out empty IDs.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{}
}

func (b *SpanAttributeBuilder) WithOperation(operation string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrOperation, operation))
	return b
}

func (b *SpanAttributeBuilder) WithSpace(spaceID string) *SpanAttributeBuilder {
	if spaceID != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrSpaceID, spaceID))
	}
	return b
}

func (b *SpanAttributeBuilder) WithTask(taskID string) *SpanAttributeBuilder {
	if taskID != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrTaskID, taskID))
	}
	return b
}

func (b *SpanAttributeBuilder) WithReadOnly(readOnly bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Bool(SpanAttrReadOnly, readOnly))
	return b
}

func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

func startSpan(ctx context.Context, name string, kind trace.SpanKind, first attribute.KeyValue, attrs []attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{first}, attrs...)
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(kind),
	)
}

// StartToolSpan starts the server span "tool.<name>" for one MCP tool call.
// The caller ends it.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "tool."+toolName, trace.SpanKindServer, attribute.String(SpanAttrTool, toolName), attrs)
}

// StartWorkastAPISpan starts the span "workast.<operation>" around one
// upstream call. The otelhttp transport adds the client span beneath it.
func StartWorkastAPISpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "workast."+operation, trace.SpanKindInternal, attribute.String(SpanAttrOperation, operation), attrs)
}

// StartSearchStageSpan starts the span "search.<stage>" for one stage of a task search.
func StartSearchStageSpan(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "search."+stage, trace.SpanKindInternal, attribute.String(SpanAttrStage, stage), attrs)
}

// SetSpanError records err on span and marks it failed. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
