package metrics

import (
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks the context request pipeline end to end.
//
// Metrics:
//   - ganymede_requests_total: Request count by intent and outcome
//   - ganymede_request_duration_seconds: End-to-end request latency
//   - ganymede_stage_duration_seconds: Per-stage latency
//   - ganymede_envelope_bytes: Size of assembled envelopes
//   - ganymede_redacted_fields_total: Fields removed by filtering
//   - ganymede_quota_rejections_total: Requests rejected by quota
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	stageDuration   *prometheus.HistogramVec
	envelopeBytes   *prometheus.HistogramVec
	redactedFields  *prometheus.CounterVec
	quotaRejections *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the
// provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "requests_total",
				Help:      "Total number of context requests by intent and outcome",
			},
			[]string{"intent", "outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "request_duration_seconds",
				Help:      "End-to-end context request duration in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"intent"},
		),

		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				// 100µs to ~1.6s
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"stage"},
		),

		envelopeBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "envelope_bytes",
				Help:      "Size of assembled context envelopes in bytes",
				// 256B to 4MB
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
			[]string{"intent"},
		),

		redactedFields: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "redacted_fields_total",
				Help:      "Total number of fields removed by policy filtering",
			},
			[]string{"intent"},
		),

		quotaRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "quota_rejections_total",
				Help:      "Total number of requests rejected by quota enforcement",
			},
			[]string{"agent_id"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.stageDuration,
		rm.envelopeBytes,
		rm.redactedFields,
		rm.quotaRejections,
	)

	return rm
}

// RecordRequest records a completed request.
//
// Outcomes follow the pipeline's terminal states: "success", "denied",
// "unauthorized", "quota_exceeded", "invalid", "timeout",
// "upstream_error".
func (rm *RequestMetrics) RecordRequest(intent, outcome string, duration time.Duration, envelopeBytes int) {
	rm.requestsTotal.WithLabelValues(intent, outcome).Inc()
	rm.requestDuration.WithLabelValues(intent).Observe(duration.Seconds())
	if envelopeBytes > 0 {
		rm.envelopeBytes.WithLabelValues(intent).Observe(float64(envelopeBytes))
	}
}

// RecordStage records the duration of one pipeline stage.
//
// Stages: "identity", "limits", "policy", "fanout", "filter",
// "envelope", "audit".
func (rm *RequestMetrics) RecordStage(stage string, duration time.Duration) {
	rm.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordRedactedFields adds to the redacted field counter.
func (rm *RequestMetrics) RecordRedactedFields(intent string, count int) {
	if count <= 0 {
		return
	}
	rm.redactedFields.WithLabelValues(intent).Add(float64(count))
}

// RecordQuotaRejection counts a request rejected by quota enforcement.
// Agent IDs come from static configuration, so the label is bounded.
func (rm *RequestMetrics) RecordQuotaRejection(agentID string) {
	rm.quotaRejections.WithLabelValues(agentID).Inc()
}
