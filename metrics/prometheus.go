package metrics

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitPrometheus installs a Prometheus-backed meter provider as the
// global OpenTelemetry state and starts Go runtime instrumentation.
// Counters created through otel.GetMeterProvider before this call start
// recording once it completes.
func InitPrometheus() error {
	exporter, err := prometheus.New()
	if err != nil {
		return errors.Wrap(err, "failed to create prometheus exporter")
	}

	otel.SetMeterProvider(metric.NewMeterProvider(metric.WithReader(exporter)))

	if err := runtime.Start(); err != nil {
		return errors.Wrap(err, "failed to start runtime instrumentation")
	}

	return nil
}
