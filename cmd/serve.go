package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/workast-mcp/internal/instrumentation"
	"github.com/teemow/workast-mcp/internal/logging"
	"github.com/teemow/workast-mcp/internal/resources"
	"github.com/teemow/workast-mcp/internal/server"
	"github.com/teemow/workast-mcp/internal/tools/workast_tools"
	"github.com/teemow/workast-mcp/internal/workast"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// MetricsConfig holds the dedicated metrics server settings.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// serveOptions collects the serve flags.
type serveOptions struct {
	configFile       string
	apiToken         string
	baseURL          string
	timeout          time.Duration
	concurrency      int
	transport        string
	httpAddr         string
	yolo             bool
	debugMode        bool
	disableStreaming bool
	metrics          MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide Workast
task management tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Safety Mode:
  By default, the server operates in read-only mode. Reads and additive
  operations (creating spaces, tasks, subtasks and comments) are available.
  Use --yolo to also enable updates, completion, deletion, assignment and tagging.

Configuration:
  Settings are resolved in this order, first match wins:
    1. Command-line flags
    2. Environment variables (WORKAST_API_TOKEN, WORKAST_BASE_URL,
       WORKAST_TIMEOUT, WORKAST_CONCURRENCY)
    3. YAML config file (--config)
    4. Built-in defaults

  An API token is required. Create one in the Workast web app under
  Settings > API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			loadMetricsEnvVars(cmd, &opts.metrics)
			return runServe(cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configFile, "config", "", "Path to a YAML config file (keys: api_token, base_url, timeout, concurrency)")
	cmd.Flags().StringVar(&opts.apiToken, "api-token", "", "Workast API token. Can also use WORKAST_API_TOKEN env var.")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", workast.DefaultBaseURL, "Workast API base URL. Can also use WORKAST_BASE_URL env var.")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", workast.DefaultTimeout, "Timeout for one tool invocation, including every upstream call. Can also use WORKAST_TIMEOUT env var.")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", workast.DefaultConcurrency, "Parallel upstream reads during a task search; 1 is sequential. Can also use WORKAST_CONCURRENCY env var.")
	cmd.Flags().BoolVar(&opts.debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Enable write operations (task updates, completion, deletion, assignment). Default is read-only mode.")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")

	// Metrics server configuration
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// resolveConfig builds the Workast configuration from defaults, the optional
// config file, WORKAST_* environment variables and explicitly set flags, in
// that order, and validates the result.
func resolveConfig(cmd *cobra.Command, opts serveOptions) (workast.Config, error) {
	cfg := workast.DefaultConfig()

	if opts.configFile != "" {
		if err := workast.LoadConfigFile(opts.configFile, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := workast.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("api-token") {
		cfg.Token = opts.apiToken
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, workast.ErrMissingToken) {
			return cfg, fmt.Errorf("invalid configuration: %w (set --api-token or %s)", err, workast.EnvAPIToken)
		}
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadMetricsEnvVars loads metrics server settings from environment variables.
// Environment variables only override flag values when the flag was not explicitly set.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				config.Enabled = enabled
			} else {
				slog.Warn("ignoring invalid METRICS_ENABLED value", "value", v)
			}
		}
	}

	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

func runServe(cfg workast.Config, opts serveOptions) error {
	if opts.transport != transportStdio && opts.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}

	// stdout carries the protocol in stdio mode, so logs always go to stderr
	logger := logging.New(os.Stderr, opts.debugMode)
	slog.SetDefault(logger)

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Debug("resolved configuration",
		"base_url", cfg.BaseURL,
		"api_token", logging.SanitizeToken(cfg.Token),
		"timeout", cfg.Timeout,
		"concurrency", cfg.Concurrency)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if opts.transport != transportStdio && opts.metrics.Enabled && provider.Enabled() {
		metricsServer, err = startMetricsServer(opts.metrics.Addr, provider)
		if err != nil {
			return err
		}
		logger.Info("metrics server started", "addr", metricsServer.Addr())
	}

	serverOpts := []server.Option{server.WithLogger(logger)}
	if provider.Enabled() {
		serverOpts = append(serverOpts,
			server.WithMetrics(provider.Metrics()),
			server.WithAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)),
		)
	}

	serverContext, err := server.NewServerContext(shutdownCtx, cfg, serverOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		// Shutdown metrics server first
		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	mcpSrv := newMCPServer()

	// readOnly is the inverse of yolo
	readOnly := !opts.yolo
	if readOnly {
		logger.Info("starting server in read-only mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting server with write operations enabled (--yolo flag is set)")
	}

	if err := registerAll(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	switch opts.transport {
	case transportStreamableHTTP:
		var metrics *instrumentation.Metrics
		if provider.Enabled() {
			metrics = provider.Metrics()
		}
		httpServer := server.NewHTTPServer(mcpSrv, server.HTTPServerConfig{
			DisableStreaming: opts.disableStreaming,
			HealthChecker:    server.NewHealthChecker(serverContext, version),
			Metrics:          metrics,
		})
		return runStreamableHTTPServer(shutdownCtx, httpServer, opts.httpAddr)
	default:
		return runStdioServer(mcpSrv)
	}
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("workast-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
}

func startMetricsServer(addr string, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

// registerAll registers every MCP tool and resource.
func registerAll(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	type registration struct {
		name     string
		register func() error
	}

	registrations := []registration{
		{
			name: "Workast tools",
			register: func() error {
				return workast_tools.RegisterWorkastTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Workast resources",
			register: func() error {
				return resources.RegisterWorkastResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, httpServer *server.HTTPServer, addr string) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		slog.Info("HTTP server stopped normally")
	}

	slog.Info("HTTP server gracefully stopped")
	return nil
}
