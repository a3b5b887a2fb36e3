package metrics

import (
	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks the payload cache.
//
// Metrics:
//   - ganymede_cache_hits_total: Cache hits by cache name
//   - ganymede_cache_misses_total: Cache misses by cache name
//   - ganymede_cache_evictions_total: Evictions by cache name
//   - ganymede_cache_entries: Current entry count by cache name
//
// The cache label distinguishes backends ("memory", "redis") when both
// are active, for instance during a migration.
type CacheMetrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	evictions *prometheus.CounterVec
	entries   *prometheus.GaugeVec
}

// NewCacheMetrics creates and registers cache metrics with the
// provided registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of payload cache hits",
			},
			[]string{"cache"},
		),

		misses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of payload cache misses",
			},
			[]string{"cache"},
		),

		evictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_evictions_total",
				Help:      "Total number of payload cache evictions",
			},
			[]string{"cache"},
		),

		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_entries",
				Help:      "Current number of payload cache entries",
			},
			[]string{"cache"},
		),
	}

	registry.MustRegister(
		cm.hits,
		cm.misses,
		cm.evictions,
		cm.entries,
	)

	return cm
}

// RecordHit records a cache hit.
func (cm *CacheMetrics) RecordHit(cache string) {
	cm.hits.WithLabelValues(cache).Inc()
}

// RecordMiss records a cache miss.
func (cm *CacheMetrics) RecordMiss(cache string) {
	cm.misses.WithLabelValues(cache).Inc()
}

// RecordEviction records an eviction.
func (cm *CacheMetrics) RecordEviction(cache string) {
	cm.evictions.WithLabelValues(cache).Inc()
}

// UpdateEntries updates the entry count gauge.
func (cm *CacheMetrics) UpdateEntries(cache string, entries int) {
	cm.entries.WithLabelValues(cache).Set(float64(entries))
}
