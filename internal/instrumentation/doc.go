// Package instrumentation wires OpenTelemetry metrics and tracing, and the
// audit log of tool calls, into workast-mcp.
//
// A Provider is created once per process from Config. When enabled it
// installs global meter and tracer providers and a W3C trace-context
// propagator, so a tool span continues into the upstream HTTP requests it
// causes. When disabled, Metrics records nothing and no spans are exported.
//
// # Metrics
//
//	http_requests_total, http_request_duration_seconds
//	    requests served by the streamable HTTP transport, by method, path and status
//	workast_api_operations_total, workast_api_operation_duration_seconds
//	    upstream calls by operation and status; path with METRICS_DETAILED_LABELS
//	workast_search_skips_total
//	    spaces (stage=fanout) or tasks (stage=expand) left out of a search after a failed read
//	workast_search_truncated_total
//	    searches that returned a partial result because their deadline passed
//	workast_search_results
//	    number of tasks per search result
//	mcp_tool_invocations_total, mcp_tool_duration_seconds
//	    tool calls by tool, service and status
//
// Prometheus is the default exporter and is scraped from the dedicated
// metrics server. otlp and stdout export every OTEL_METRIC_EXPORT_INTERVAL.
//
// # Tracing
//
// Tool calls get a server span named tool.<name>. Task search adds
// search.scope, search.fanout and search.expand, and every upstream call a
// workast.<operation> span with an otelhttp client span below it.
//
// # Environment
//
//	INSTRUMENTATION_ENABLED              default true
//	METRICS_EXPORTER                     prometheus | otlp | stdout
//	TRACING_EXPORTER                     none | otlp | stdout
//	OTEL_EXPORTER_OTLP_ENDPOINT          host:port, required for otlp
//	OTEL_EXPORTER_OTLP_INSECURE          plain HTTP to the collector
//	OTEL_TRACES_SAMPLER_ARG              0.0 to 1.0, default 0.1
//	OTEL_METRIC_EXPORT_INTERVAL          Go duration, default 10s
//	OTEL_SERVICE_NAME                    default workast-mcp
//	METRICS_DETAILED_LABELS              add normalized paths to API metrics
//	AUDIT_LOGGING_ENABLED                default true
//	AUDIT_LOGGING_INCLUDE_RESOURCE_IDS   default false
package instrumentation
