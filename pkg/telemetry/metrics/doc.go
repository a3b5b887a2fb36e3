// Package metrics provides Prometheus metrics for the Ganymede proxy.
//
// # Overview
//
// The metrics package instruments the context request pipeline:
// request outcomes and latency, per-stage timing, source fetch health,
// policy decisions, payload cache behavior, and the audit write path.
//
// # Metric Families
//
//   - Request: count, duration, stage duration, envelope size,
//     redacted fields, quota rejections
//   - Source: fetch count, fetch duration, errors, health
//   - Policy: decisions, evaluation duration, reloads, loaded count
//   - Cache: hits, misses, evictions, entries
//   - Audit: appends, append duration, pruned records, chain
//     verifications
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	collector.RecordRequest("loan_assessment", "success", 210*time.Millisecond, 4096)
//	collector.RecordStage("fanout", 180*time.Millisecond)
//	collector.RecordSourceFetch("crm", "success", 95*time.Millisecond)
//	collector.RecordPolicyDecision("loan_assessment", "allow", 40*time.Microsecond)
//
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Cardinality Management
//
// The intent label comes from agent requests, so the collector folds
// unseen intents into "other" after 10,000 unique label combinations.
// All other labels are bounded by configuration (sources, agents,
// policies) or by small enums (outcomes, statuses).
//
// # Exposition
//
// Metrics are served in Prometheus format, with OpenMetrics
// negotiation enabled:
//
//	# HELP ganymede_requests_total Total number of context requests by intent and outcome
//	# TYPE ganymede_requests_total counter
//	ganymede_requests_total{intent="loan_assessment",outcome="success"} 1234
package metrics
