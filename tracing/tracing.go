// Package tracing wires a trace provider into the global OpenTelemetry
// state so transport spans (Postmark.Send, SMTP.Send, SES.Send) are
// exported.
package tracing

import (
	"io"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Provider interface {
	trace.TracerProvider
	io.Closer
}

// ProviderBuilder hides the construction details of a concrete provider
// (its config struct, exporter wiring).
type ProviderBuilder func() (Provider, error)

// Init builds the provider and installs it globally. On builder failure
// a no-op provider is returned alongside the error, so callers can keep
// running without tracing.
func Init(builder ProviderBuilder) (Provider, error) {
	provider, err := builder()
	if err != nil {
		return &NoopProvider{}, errors.Wrap(err, "failed to load tracing provider")
	}

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return provider, nil
}

type NoopProvider struct{ *tracesdk.TracerProvider }

func (NoopProvider) Close() error { return nil }
