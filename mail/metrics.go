package mail

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.GetMeterProvider().Meter("github.com/pure-golang/mailer/mail")
	// nolint:errcheck // Sync OpenTelemetry instruments never return errors
	sendsTotal, _   = meter.Int64Counter("mailer.sends_total")
	sendFailures, _ = meter.Int64Counter("mailer.send_failures_total")
)

// RecordSend counts one send attempt for the named transport.
func RecordSend(ctx context.Context, transport string, failed bool) {
	attrs := metric.WithAttributes(attribute.String("transport", transport))
	sendsTotal.Add(ctx, 1, attrs)
	if failed {
		sendFailures.Add(ctx, 1, attrs)
	}
}
