package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/workast-mcp/internal/instrumentation"
	"github.com/teemow/workast-mcp/internal/logging"
	"github.com/teemow/workast-mcp/internal/workast"
)

// ServerContext holds the shared dependencies of the MCP server: the Workast
// client, the task searcher and the optional instrumentation.
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	config      workast.Config
	client      *workast.Client
	searcher    *workast.Searcher
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger
	mu          sync.RWMutex
	shutdown    bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMetrics records upstream calls, searches and tool invocations on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) {
		sc.metrics = m
	}
}

// WithAuditLogger logs every tool invocation to al.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) {
		sc.auditLogger = al
	}
}

// WithLogger sets the logger handed to the searcher. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// NewServerContext creates a new server context.
// A missing API token is not an error here; tools report it when called.
func NewServerContext(ctx context.Context, cfg workast.Config, opts ...Option) (*ServerContext, error) {
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		config: cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}

	client, err := workast.NewClient(cfg, workast.WithMetrics(sc.metrics))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create Workast client: %w", err)
	}
	sc.client = client
	sc.searcher = workast.NewSearcher(client,
		workast.WithConcurrency(cfg.Concurrency),
		workast.WithLogger(logging.Component(sc.logger, "search")),
		workast.WithSearchMetrics(sc.metrics),
	)

	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Client returns the Workast API client
func (sc *ServerContext) Client() *workast.Client {
	return sc.client
}

// Searcher returns the task searcher
func (sc *ServerContext) Searcher() *workast.Searcher {
	return sc.searcher
}

// Config returns the Workast configuration the context was created with.
func (sc *ServerContext) Config() workast.Config {
	return sc.config
}

// Timeout returns the budget for one tool invocation.
func (sc *ServerContext) Timeout() time.Duration {
	if sc.config.Timeout <= 0 {
		return workast.DefaultTimeout
	}
	return sc.config.Timeout
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil when audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
