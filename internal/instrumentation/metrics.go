package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrTool      = "tool"
	attrStage     = "stage"
)

var (
	httpBuckets   = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}
	callBuckets   = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}
	resultBuckets = []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000}
)

// timed pairs a call counter with a duration histogram sharing its attributes.
type timed struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

func (t *timed) record(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	if t == nil {
		return
	}
	opt := metric.WithAttributeSet(attribute.NewSet(attrs...))
	t.total.Add(ctx, 1, opt)
	t.duration.Record(ctx, d.Seconds(), opt)
}

// Metrics records the server's metrics. A nil or zero Metrics records nothing,
// which is what a disabled Provider hands out.
type Metrics struct {
	http  *timed
	api   *timed
	tools *timed

	searchSkips     metric.Int64Counter
	searchTruncated metric.Int64Counter
	searchResults   metric.Int64Histogram

	// detailedLabels adds the normalized request path to API metrics
	detailedLabels bool
}

// builder creates instruments on one meter and keeps every creation error.
type builder struct {
	meter metric.Meter
	errs  []error
}

func (b *builder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("failed to create %s counter: %w", name, err))
	}
	return c
}

func (b *builder) seconds(name, desc string, buckets []float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("failed to create %s histogram: %w", name, err))
	}
	return h
}

// timed creates a counter and a seconds histogram described by what,
// e.g. "HTTP requests" gives "Total number of HTTP requests".
func (b *builder) timed(counter, histogram, what, unit string, buckets []float64) *timed {
	return &timed{
		total:    b.counter(counter, "Total number of "+what, unit),
		duration: b.seconds(histogram, what+" duration in seconds", buckets),
	}
}

// NewMetrics creates every instrument on meter. With detailedLabels the
// upstream API metrics also carry the normalized request path.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	b := &builder{meter: meter}

	m := &Metrics{
		http:            b.timed("http_requests_total", "http_request_duration_seconds", "HTTP requests", "{request}", httpBuckets),
		api:             b.timed("workast_api_operations_total", "workast_api_operation_duration_seconds", "Workast API operations", "{operation}", callBuckets),
		tools:           b.timed("mcp_tool_invocations_total", "mcp_tool_duration_seconds", "MCP tool invocations", "{invocation}", callBuckets),
		searchSkips:     b.counter("workast_search_skips_total", "Spaces or tasks skipped during a task search because their upstream read failed", "{skip}"),
		searchTruncated: b.counter("workast_search_truncated_total", "Task searches that returned a partial result because their deadline passed", "{search}"),
		detailedLabels:  detailedLabels,
	}

	var err error
	m.searchResults, err = meter.Int64Histogram("workast_search_results",
		metric.WithDescription("Number of tasks returned by a task search"),
		metric.WithUnit("{task}"),
		metric.WithExplicitBucketBoundaries(resultBuckets...),
	)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("failed to create workast_search_results histogram: %w", err))
	}

	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordHTTPRequest records one request served by the HTTP transport.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.http.record(ctx, duration,
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
}

// RecordWorkastAPIOperation records one upstream Workast API call. The path
// is only recorded, normalized, when detailed labels are enabled.
func (m *Metrics) RecordWorkastAPIOperation(ctx context.Context, operation, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrPath, NormalizeAPIPath(path)))
	}
	m.api.record(ctx, duration, attrs...)
}

// RecordToolInvocation records one MCP tool call. An empty service omits
// the service label.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, service, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	}
	if service != "" {
		attrs = append(attrs, attribute.String(attrService, service))
	}
	m.tools.record(ctx, duration, attrs...)
}

// RecordSearchSkip records a space or task dropped from a search result
// because its upstream read failed. Stage is StageFanout or StageExpand.
func (m *Metrics) RecordSearchSkip(ctx context.Context, stage string) {
	if m == nil || m.searchSkips == nil {
		return
	}
	m.searchSkips.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStage, stage)))
}

// RecordSearchTruncated records a search whose context ended before every
// space and task had been read.
func (m *Metrics) RecordSearchTruncated(ctx context.Context) {
	if m == nil || m.searchTruncated == nil {
		return
	}
	m.searchTruncated.Add(ctx, 1)
}

// RecordSearchResults records the size of a task search result.
func (m *Metrics) RecordSearchResults(ctx context.Context, count int) {
	if m == nil || m.searchResults == nil {
		return
	}
	m.searchResults.Record(ctx, int64(count))
}
