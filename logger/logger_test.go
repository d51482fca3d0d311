package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/mailer/logger/noop"
)

func TestNew_AllProviders(t *testing.T) {
	for _, provider := range []Provider{ProviderDev, ProviderStdJSON, ProviderNoop} {
		l := New(Config{Provider: provider, Level: LevelInfo})
		assert.NotNil(t, l, "provider %s", provider)
	}
}

func TestNew_UnknownProviderFallsBack(t *testing.T) {
	l := New(Config{Provider: Provider("bogus"), Level: LevelWarn})

	require.NotNil(t, l)
	assert.False(t, l.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, l.Handler().Enabled(context.Background(), slog.LevelWarn))
}

func TestInitDefault_SetsGlobalLogger(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	InitDefault(Config{Provider: ProviderNoop, Level: LevelDebug})

	assert.NotSame(t, original, slog.Default())
}

func TestNewContext_RoundTrip(t *testing.T) {
	testLogger := noop.NewNoop()

	ctx := NewContext(context.Background(), testLogger)

	assert.Same(t, testLogger, FromContext(ctx))
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	retrieved := FromContext(context.Background())

	assert.Same(t, slog.Default(), retrieved)
}

func TestNewContext_ReplacesExistingLogger(t *testing.T) {
	logger1 := noop.NewNoop()
	logger2 := noop.NewNoop()

	ctx := NewContext(context.Background(), logger1)
	ctx = NewContext(ctx, logger2)

	assert.Same(t, logger2, FromContext(ctx))
}

func TestWithErr(t *testing.T) {
	err := errors.New("delivery refused")

	l := WithErr(err)

	assert.NotNil(t, l)
	l.Error("send failed")
}

func TestFromContextWithErr_AttachesStack(t *testing.T) {
	ctx := NewContext(context.Background(), noop.NewNoop())
	err := errors.Wrap(errors.New("dial tcp: refused"), "could not send the mail")

	l := FromContextWithErr(ctx, err)

	assert.NotNil(t, l)
	l.Error("send failed")
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, slogLevel(LevelDebug))
	assert.Equal(t, slog.LevelInfo, slogLevel(LevelInfo))
	assert.Equal(t, slog.LevelWarn, slogLevel(LevelWarn))
	assert.Equal(t, slog.LevelError, slogLevel(LevelError))
	assert.Equal(t, slog.LevelInfo, slogLevel(Level("nonsense")))
	assert.Equal(t, slog.LevelInfo, slogLevel(Level("")))
}
