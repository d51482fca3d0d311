// Package metrics exposes the Prometheus scrape endpoint and installs
// the OpenTelemetry meter provider the mail transports record their
// delivery counters into.
package metrics

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	Host        string `envconfig:"METRICS_HOST" default:""`
	Port        int    `envconfig:"METRICS_PORT" default:"9464"`
	ReadTimeout int    `envconfig:"METRICS_READ_TIMEOUT" default:"30"` // seconds
}

// Server serves /metrics for Prometheus scrapes.
type Server struct {
	io.Closer
	server *http.Server
}

// InitDefault installs the meter provider and starts the scrape server.
func InitDefault(config Config) (io.Closer, error) {
	server := New(config)
	if err := server.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start metrics server")
	}

	return server, nil
}

func New(config Config) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		server: &http.Server{
			Addr:        fmt.Sprintf("%s:%d", config.Host, config.Port),
			Handler:     mux,
			ReadTimeout: time.Duration(config.ReadTimeout) * time.Second,
		},
	}
}

func (s *Server) Start() error {
	if err := InitPrometheus(); err != nil {
		return errors.Wrap(err, "failed to init prometheus")
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Default().Warn("metrics server failed", "error", err.Error())
		}
	}()

	return nil
}

func (s *Server) Close() error {
	return errors.Wrap(s.server.Close(), "failed to close metrics server")
}

// Handler returns the scrape handler for embedding into an existing mux.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
