// Package logging provides structured logging utilities for the workast-mcp server.
//
// All logging goes through log/slog. The package fixes the attribute keys used
// by log lines and audit records, and defines the Logger interface domain code
// accepts, which *slog.Logger satisfies.
//
// # Usage Patterns
//
// Create the process logger once at startup:
//
//	logger := logging.New(os.Stderr, debug)
//	slog.SetDefault(logger)
//
// Attach standard attributes:
//
//	logger := logging.Component(slog.Default(), "search")
//	logger.Warn("skipping space", logging.Space(id), logging.Err(err))
//
// # Transport Considerations
//
// With the stdio transport, stdout carries the MCP protocol stream, so logs
// must always be written to stderr.
//
// # Security Considerations
//
// API tokens are never logged directly; use SanitizeToken.
package logging
