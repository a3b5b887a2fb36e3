package metrics

import (
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics tracks the audit trail write path and chain integrity.
//
// Metrics:
//   - ganymede_audit_appends_total: Record writes by status
//   - ganymede_audit_append_duration_seconds: Write latency
//   - ganymede_audit_pruned_records_total: Records removed by retention
//   - ganymede_audit_chain_verifications_total: Verification outcomes
type AuditMetrics struct {
	appends            *prometheus.CounterVec
	appendDuration     prometheus.Histogram
	prunedRecords      prometheus.Counter
	chainVerifications *prometheus.CounterVec
}

// NewAuditMetrics creates and registers audit metrics with the
// provided registry.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		appends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_appends_total",
				Help:      "Total number of audit record writes by status",
			},
			[]string{"status"},
		),

		appendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_append_duration_seconds",
				Help:      "Audit record write duration in seconds",
				// 100µs to ~1.6s; writes go to local SQLite
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),

		prunedRecords: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_pruned_records_total",
				Help:      "Total number of audit records removed by retention",
			},
		),

		chainVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_chain_verifications_total",
				Help:      "Total number of audit chain verifications by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		am.appends,
		am.appendDuration,
		am.prunedRecords,
		am.chainVerifications,
	)

	return am
}

// RecordAppend records an audit record write.
//
// Statuses: "success", "error".
func (am *AuditMetrics) RecordAppend(status string, duration time.Duration) {
	am.appends.WithLabelValues(status).Inc()
	am.appendDuration.Observe(duration.Seconds())
}

// RecordPrune adds to the pruned record counter.
func (am *AuditMetrics) RecordPrune(count int) {
	if count <= 0 {
		return
	}
	am.prunedRecords.Add(float64(count))
}

// RecordChainVerification records a verification outcome.
//
// Results: "valid", "invalid", "error".
func (am *AuditMetrics) RecordChainVerification(result string) {
	am.chainVerifications.WithLabelValues(result).Inc()
}
