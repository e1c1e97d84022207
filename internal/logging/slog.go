package logging

import (
	"fmt"
	"io"
	"log/slog"
)

// Attribute keys shared by every log line and audit record.
const (
	KeyComponent  = "component"
	KeyOperation  = "operation"
	KeyTool       = "tool"
	KeyService    = "service"
	KeySpace      = "space_id"
	KeyTask       = "task_id"
	KeyStage      = "stage"
	KeyError      = "error"
	KeyDuration   = "duration"
	KeyInvocation = "invocation_id"
)

// New returns a text logger writing to w, at DEBUG when debug is set and
// INFO otherwise. A nil w discards everything.
func New(w io.Writer, debug bool) *slog.Logger {
	if w == nil {
		return Discard()
	}
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func Operation(op string) slog.Attr  { return slog.String(KeyOperation, op) }
func Tool(name string) slog.Attr     { return slog.String(KeyTool, name) }
func Space(id string) slog.Attr      { return slog.String(KeySpace, id) }
func Task(id string) slog.Attr       { return slog.String(KeyTask, id) }
func Stage(stage string) slog.Attr   { return slog.String(KeyStage, stage) }
func Invocation(id string) slog.Attr { return slog.String(KeyInvocation, id) }

// Err is safe to call with a nil error: it then returns an empty attribute,
// which handlers leave out.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken describes a token by its length only.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
