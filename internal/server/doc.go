// Package server holds the runtime pieces shared by both MCP transports.
//
// ServerContext owns the Workast client and task searcher built from one
// workast.Config, plus the optional metrics recorder and audit logger that
// tool handlers report to.
//
// HTTPServer mounts the streamable HTTP transport at /mcp, next to the
// /healthz, /readyz and /healthz/detailed probes served by HealthChecker.
// MetricsServer exposes Prometheus metrics on a separate listener.
package server
