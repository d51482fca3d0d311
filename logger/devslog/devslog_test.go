package devslog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToWriter(t *testing.T) {
	var buf bytes.Buffer

	l := New(&buf, slog.LevelInfo)
	l.Info("mail sent", "subject", "hello")

	output := buf.String()
	assert.Contains(t, output, "mail sent")
	assert.Contains(t, output, "hello")
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	l := New(&buf, slog.LevelWarn)

	h := l.Handler()
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	l.Info("filtered out")
	assert.Empty(t, buf.String())
}

func TestNew_WithAttributes(t *testing.T) {
	var buf bytes.Buffer

	l := New(&buf, slog.LevelDebug).With("transport", "smtp")
	l.Debug("delivery attempt")

	assert.Contains(t, buf.String(), "smtp")
}

func TestNewDefault(t *testing.T) {
	l := NewDefault(slog.LevelInfo)

	require.NotNil(t, l)
	assert.True(t, l.Handler().Enabled(context.Background(), slog.LevelInfo))
}
