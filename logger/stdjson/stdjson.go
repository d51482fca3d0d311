// Package stdjson provides the production slog handler: line-delimited
// JSON from the standard library.
package stdjson

import (
	"io"
	"log/slog"
	"os"
)

// New creates a JSON logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewDefault creates a JSON logger writing to stdout.
func NewDefault(level slog.Level) *slog.Logger {
	return New(os.Stdout, level)
}
