package metrics

import (
	"fmt"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// defaultCardinalityLimit caps the number of unique label combinations
// tracked per metric family. Intents are agent-supplied strings, so an
// unguarded label would let a misbehaving agent grow the registry
// without bound.
const defaultCardinalityLimit = 10000

// Collector is the central metrics collector for the proxy. It owns a
// Prometheus registry and the metric families for each pipeline stage.
//
// All recording methods are no-ops when metrics are disabled, so
// callers never need to check configuration themselves.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	request *RequestMetrics
	source  *SourceMetrics
	policy  *PolicyMetrics
	cache   *CacheMetrics
	audit   *AuditMetrics

	cardinality *CardinalityLimiter
}

// NewCollector creates a metrics collector and registers all metric
// families with the given registry. A nil registry gets a fresh one,
// which keeps tests isolated from each other.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Tests and embedded uses construct the config directly, without
	// going through ApplyDefaults.
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = config.DefaultRequestDurationBuckets()
	}

	c := &Collector{
		config:      cfg,
		registry:    registry,
		cardinality: NewCardinalityLimiter(defaultCardinalityLimit),
	}

	if !cfg.Disabled {
		c.request = NewRequestMetrics(cfg, registry)
		c.source = NewSourceMetrics(cfg, registry)
		c.policy = NewPolicyMetrics(cfg, registry)
		c.cache = NewCacheMetrics(cfg, registry)
		c.audit = NewAuditMetrics(cfg, registry)
	}

	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRequest records a completed context request. The intent label
// is folded into "other" once the cardinality limit is reached.
func (c *Collector) RecordRequest(intent, outcome string, duration time.Duration, envelopeBytes int) {
	if c.config.Disabled {
		return
	}

	labelSet := fmt.Sprintf("request:%s:%s", intent, outcome)
	if !c.cardinality.Allow(labelSet) {
		intent = "other"
	}

	c.request.RecordRequest(intent, outcome, duration, envelopeBytes)
}

// RecordStage records the duration of a single pipeline stage.
func (c *Collector) RecordStage(stage string, duration time.Duration) {
	if c.config.Disabled {
		return
	}
	c.request.RecordStage(stage, duration)
}

// RecordRedactedFields records how many fields a request had redacted.
func (c *Collector) RecordRedactedFields(intent string, count int) {
	if c.config.Disabled {
		return
	}
	if !c.cardinality.Allow("redacted:" + intent) {
		intent = "other"
	}
	c.request.RecordRedactedFields(intent, count)
}

// RecordQuotaRejection records a request rejected by quota enforcement.
func (c *Collector) RecordQuotaRejection(agentID string) {
	if c.config.Disabled {
		return
	}
	c.request.RecordQuotaRejection(agentID)
}

// RecordSourceFetch records one upstream fetch attempt.
func (c *Collector) RecordSourceFetch(source, status string, duration time.Duration) {
	if c.config.Disabled {
		return
	}
	c.source.RecordFetch(source, status, duration)
}

// RecordSourceError records an upstream fetch error by type.
func (c *Collector) RecordSourceError(source, errorType string) {
	if c.config.Disabled {
		return
	}
	c.source.RecordError(source, errorType)
}

// UpdateSourceHealth updates the health gauge for a source.
func (c *Collector) UpdateSourceHealth(source string, healthy bool) {
	if c.config.Disabled {
		return
	}
	c.source.UpdateHealth(source, healthy)
}

// RecordPolicyDecision records a policy evaluation and its result.
func (c *Collector) RecordPolicyDecision(policyID, result string, duration time.Duration) {
	if c.config.Disabled {
		return
	}
	c.policy.RecordDecision(policyID, result, duration)
}

// RecordPolicyReload records a policy registry reload attempt.
func (c *Collector) RecordPolicyReload(status string) {
	if c.config.Disabled {
		return
	}
	c.policy.RecordReload(status)
}

// UpdatePoliciesLoaded updates the loaded policy count gauge.
func (c *Collector) UpdatePoliciesLoaded(count int) {
	if c.config.Disabled {
		return
	}
	c.policy.UpdateLoaded(count)
}

// RecordCacheHit records a payload cache hit.
func (c *Collector) RecordCacheHit(cache string) {
	if c.config.Disabled {
		return
	}
	c.cache.RecordHit(cache)
}

// RecordCacheMiss records a payload cache miss.
func (c *Collector) RecordCacheMiss(cache string) {
	if c.config.Disabled {
		return
	}
	c.cache.RecordMiss(cache)
}

// RecordCacheEviction records an entry evicted from the payload cache.
func (c *Collector) RecordCacheEviction(cache string) {
	if c.config.Disabled {
		return
	}
	c.cache.RecordEviction(cache)
}

// UpdateCacheEntries updates the cache entry count gauge.
func (c *Collector) UpdateCacheEntries(cache string, entries int) {
	if c.config.Disabled {
		return
	}
	c.cache.UpdateEntries(cache, entries)
}

// RecordAuditAppend records an audit record write.
func (c *Collector) RecordAuditAppend(status string, duration time.Duration) {
	if c.config.Disabled {
		return
	}
	c.audit.RecordAppend(status, duration)
}

// RecordAuditPrune records how many audit records a retention pass
// removed.
func (c *Collector) RecordAuditPrune(count int) {
	if c.config.Disabled {
		return
	}
	c.audit.RecordPrune(count)
}

// RecordChainVerification records the result of an audit chain
// verification.
func (c *Collector) RecordChainVerification(result string) {
	if c.config.Disabled {
		return
	}
	c.audit.RecordChainVerification(result)
}

// CardinalityLimiter tracks unique label combinations and rejects new
// ones past a limit.
type CardinalityLimiter struct {
	mu    sync.RWMutex
	seen  map[string]struct{}
	limit int
}

// NewCardinalityLimiter creates a limiter allowing up to limit unique
// label sets.
func NewCardinalityLimiter(limit int) *CardinalityLimiter {
	return &CardinalityLimiter{
		seen:  make(map[string]struct{}),
		limit: limit,
	}
}

// Allow reports whether the label set may be recorded. Known sets are
// always allowed; new sets are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, ok := cl.seen[labelSet]; ok {
		cl.mu.RUnlock()
		return true
	}
	if len(cl.seen) >= cl.limit {
		cl.mu.RUnlock()
		return false
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Re-check under the write lock.
	if _, ok := cl.seen[labelSet]; ok {
		return true
	}
	if len(cl.seen) >= cl.limit {
		return false
	}

	cl.seen[labelSet] = struct{}{}
	return true
}

// Count returns the number of tracked label sets.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.seen)
}
