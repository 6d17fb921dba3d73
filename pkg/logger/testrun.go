package logger

import (
	"io"
	"log/slog"
)

// NewTestHandler discards output but still honours level, so Enabled
// checks behave as they would in production.
func NewTestHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})
}
