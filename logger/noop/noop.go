// Package noop provides a logger that discards every record. Transports
// take it in tests so policy logging stays silent.
package noop

import (
	"io"
	"log/slog"
)

func NewNoop() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
