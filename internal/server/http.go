package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/workast-mcp/internal/instrumentation"
)

// MCPEndpointPath is where the streamable HTTP transport is mounted.
const MCPEndpointPath = "/mcp"

// HTTPServerConfig configures the streamable HTTP transport.
type HTTPServerConfig struct {
	// DisableStreaming makes the MCP endpoint answer with plain JSON instead of SSE.
	DisableStreaming bool

	// HealthChecker, when set, serves /healthz, /readyz and /healthz/detailed.
	HealthChecker *HealthChecker

	// Metrics, when set, records every HTTP request.
	Metrics *instrumentation.Metrics
}

// HTTPServer serves an MCP server over streamable HTTP.
type HTTPServer struct {
	handler    http.Handler
	httpServer *http.Server
}

// NewHTTPServer builds the handler tree for mcpSrv.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, config HTTPServerConfig) *HTTPServer {
	opts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath(MCPEndpointPath)}
	if config.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}

	mux := http.NewServeMux()
	mux.Handle(MCPEndpointPath, mcpserver.NewStreamableHTTPServer(mcpSrv, opts...))
	if config.HealthChecker != nil {
		config.HealthChecker.RegisterHealthEndpoints(mux)
	}

	var handler http.Handler = mux
	if config.Metrics != nil {
		handler = instrumentationMiddleware(config.Metrics, handler)
	}
	handler = otelhttp.NewHandler(handler, "mcp.http")

	return &HTTPServer{
		handler: handler,
		// No write timeout: SSE responses stay open for the length of a tool call.
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Start blocks serving on addr until Shutdown is called.
func (s *HTTPServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve blocks serving on ln until Shutdown is called.
func (s *HTTPServer) Serve(ln net.Listener) error {
	slog.Info("starting MCP HTTP server", "addr", ln.Addr().String(), "endpoint", MCPEndpointPath)
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// responseWriter captures the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// instrumentationMiddleware records method, path and status of every request.
// Unknown paths are folded into one label value.
func instrumentationMiddleware(m *instrumentation.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		m.RecordHTTPRequest(r.Context(), r.Method, metricsPath(r.URL.Path), rw.statusCode, time.Since(start))
	})
}

func metricsPath(path string) string {
	switch path {
	case MCPEndpointPath, "/healthz", "/readyz", "/healthz/detailed":
		return path
	default:
		return "other"
	}
}
