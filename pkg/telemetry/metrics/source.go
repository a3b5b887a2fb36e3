package metrics

import (
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SourceMetrics tracks upstream source fetch health and performance.
//
// Metrics:
//   - ganymede_source_fetches_total: Fetch attempts by source and status
//   - ganymede_source_fetch_duration_seconds: Fetch latency per source
//   - ganymede_source_errors_total: Fetch errors by source and type
//   - ganymede_source_health: Source health (1=healthy, 0=unhealthy)
type SourceMetrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	errors        *prometheus.CounterVec
	health        *prometheus.GaugeVec
}

// NewSourceMetrics creates and registers source metrics with the
// provided registry.
func NewSourceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SourceMetrics {
	sm := &SourceMetrics{
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "source_fetches_total",
				Help:      "Total number of source fetch attempts by status",
			},
			[]string{"source", "status"},
		),

		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "source_fetch_duration_seconds",
				Help:      "Source fetch duration in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"source"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "source_errors_total",
				Help:      "Total number of source fetch errors by type",
			},
			[]string{"source", "error_type"},
		),

		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "source_health",
				Help:      "Source health status (1=healthy, 0=unhealthy)",
			},
			[]string{"source"},
		),
	}

	registry.MustRegister(
		sm.fetches,
		sm.fetchDuration,
		sm.errors,
		sm.health,
	)

	return sm
}

// RecordFetch records one fetch attempt.
//
// Statuses: "success", "error", "timeout", "skipped" (source not
// named by any matched policy rule).
func (sm *SourceMetrics) RecordFetch(source, status string, duration time.Duration) {
	sm.fetches.WithLabelValues(source, status).Inc()
	sm.fetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordError records a fetch error.
//
// Error types: "timeout", "connection", "auth", "decode", "too_large",
// "query".
func (sm *SourceMetrics) RecordError(source, errorType string) {
	sm.errors.WithLabelValues(source, errorType).Inc()
}

// UpdateHealth updates the health gauge for a source.
func (sm *SourceMetrics) UpdateHealth(source string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	sm.health.WithLabelValues(source).Set(value)
}
