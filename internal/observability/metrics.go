// Package observability provides the Prometheus registry and /metrics
// handler for the dashboard. Sentry error telemetry lives in the telemetry
// package.
package observability

import (
	"fmt"
	stdlog "log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/villedieurio/evened-web/internal/logger"
	"github.com/villedieurio/evened-web/internal/observability/metrics"
)

// Metrics holds the registry and all metric collectors.
type Metrics struct {
	registry  *prometheus.Registry
	Dashboard *metrics.DashboardMetrics
}

// NewMetrics creates a registry with the dashboard collectors plus the Go
// runtime and process collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	dashboard, err := metrics.NewDashboardMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard metrics: %w", err)
	}

	return &Metrics{registry: registry, Dashboard: dashboard}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler(log logger.Logger) http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      stdlog.New(logWriter{log: log}, "", 0),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// Recorder returns the dashboard collector as a metrics.Recorder, or a
// no-op recorder when m is nil so callers need no telemetry checks.
func (m *Metrics) Recorder() metrics.Recorder {
	if m == nil {
		return metrics.NopRecorder{}
	}
	return m.Dashboard
}

// logWriter adapts promhttp's log.Logger output to the structured logger.
type logWriter struct {
	log logger.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	if w.log != nil {
		w.log.Error("metrics handler error", logger.String("detail", string(p)))
	}
	return len(p), nil
}
