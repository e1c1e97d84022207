// Package common holds the helpers shared by every Workast tool: argument
// extraction, result rendering and the instrumentation wrapper that applies
// the invocation timeout and records spans, metrics and audit entries.
package common
