package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a process logger with JSON output on stderr. Stdout is left to
// the operator prompt.
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter creates a JSON logger writing to w.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
