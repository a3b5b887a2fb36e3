package metrics

import (
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PolicyMetrics tracks policy evaluation and registry reloads.
//
// Metrics:
//   - ganymede_policy_decisions_total: Decisions by policy and result
//   - ganymede_policy_decision_duration_seconds: Evaluation latency
//   - ganymede_policy_reloads_total: Registry reload attempts
//   - ganymede_policies_loaded: Currently loaded policy count
type PolicyMetrics struct {
	decisions        *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
	reloads          *prometheus.CounterVec
	loaded           prometheus.Gauge
}

// NewPolicyMetrics creates and registers policy metrics with the
// provided registry.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "policy_decisions_total",
				Help:      "Total number of policy decisions by policy and result",
			},
			[]string{"policy_id", "result"},
		),

		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "policy_decision_duration_seconds",
				Help:      "Policy evaluation duration in seconds",
				// 1µs to ~16ms; evaluation is in-memory rule matching
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
			[]string{"policy_id"},
		),

		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "policy_reloads_total",
				Help:      "Total number of policy registry reloads by status",
			},
			[]string{"status"},
		),

		loaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "policies_loaded",
				Help:      "Number of currently loaded policies",
			},
		),
	}

	registry.MustRegister(
		pm.decisions,
		pm.decisionDuration,
		pm.reloads,
		pm.loaded,
	)

	return pm
}

// RecordDecision records a policy evaluation.
//
// Results: "allow", "deny", "no_match".
func (pm *PolicyMetrics) RecordDecision(policyID, result string, duration time.Duration) {
	pm.decisions.WithLabelValues(policyID, result).Inc()
	pm.decisionDuration.WithLabelValues(policyID).Observe(duration.Seconds())
}

// RecordReload records a registry reload attempt.
//
// Statuses: "success", "error".
func (pm *PolicyMetrics) RecordReload(status string) {
	pm.reloads.WithLabelValues(status).Inc()
}

// UpdateLoaded updates the loaded policy count gauge.
func (pm *PolicyMetrics) UpdateLoaded(count int) {
	pm.loaded.Set(float64(count))
}
