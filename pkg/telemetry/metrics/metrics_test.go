package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// testConfig returns a metrics config suitable for tests.
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Namespace:              "test",
		RequestDurationBuckets: config.DefaultRequestDurationBuckets(),
	}
}

func TestNewCollector(t *testing.T) {
	t.Run("nil registry gets a fresh one", func(t *testing.T) {
		collector := NewCollector(testConfig(), nil)
		if collector.Registry() == nil {
			t.Fatal("Registry() returned nil")
		}
	})

	t.Run("provided registry is used", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		collector := NewCollector(testConfig(), registry)
		if collector.Registry() != registry {
			t.Error("Collector did not keep the provided registry")
		}
	})

	t.Run("empty namespace defaults", func(t *testing.T) {
		cfg := &config.MetricsConfig{}
		NewCollector(cfg, nil)
		if cfg.Namespace != config.DefaultMetricsNamespace {
			t.Errorf("Namespace = %q, want %q", cfg.Namespace, config.DefaultMetricsNamespace)
		}
		if len(cfg.RequestDurationBuckets) == 0 {
			t.Error("RequestDurationBuckets not defaulted")
		}
	})
}

func TestCollector_RecordRequest(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordRequest("loan_assessment", "success", 210*time.Millisecond, 4096)
	collector.RecordRequest("loan_assessment", "success", 180*time.Millisecond, 2048)
	collector.RecordRequest("loan_assessment", "denied", 5*time.Millisecond, 0)

	success := testutil.ToFloat64(collector.request.requestsTotal.WithLabelValues("loan_assessment", "success"))
	if success != 2 {
		t.Errorf("requests_total{success} = %v, want 2", success)
	}

	denied := testutil.ToFloat64(collector.request.requestsTotal.WithLabelValues("loan_assessment", "denied"))
	if denied != 1 {
		t.Errorf("requests_total{denied} = %v, want 1", denied)
	}

	if n := testutil.CollectAndCount(collector.request.requestDuration); n != 1 {
		t.Errorf("request_duration series = %d, want 1", n)
	}

	// The zero-byte denied request must not observe an envelope size.
	if n := testutil.CollectAndCount(collector.request.envelopeBytes); n != 1 {
		t.Errorf("envelope_bytes series = %d, want 1", n)
	}
}

func TestCollector_RecordStage(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	for _, stage := range []string{"identity", "policy", "fanout", "fanout"} {
		collector.RecordStage(stage, 10*time.Millisecond)
	}

	if n := testutil.CollectAndCount(collector.request.stageDuration); n != 3 {
		t.Errorf("stage_duration series = %d, want 3", n)
	}
}

func TestCollector_RecordRedactedFields(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordRedactedFields("loan_assessment", 3)
	collector.RecordRedactedFields("loan_assessment", 2)
	collector.RecordRedactedFields("loan_assessment", 0)

	got := testutil.ToFloat64(collector.request.redactedFields.WithLabelValues("loan_assessment"))
	if got != 5 {
		t.Errorf("redacted_fields_total = %v, want 5", got)
	}
}

func TestCollector_RecordQuotaRejection(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordQuotaRejection("loan-agent")
	collector.RecordQuotaRejection("loan-agent")

	got := testutil.ToFloat64(collector.request.quotaRejections.WithLabelValues("loan-agent"))
	if got != 2 {
		t.Errorf("quota_rejections_total = %v, want 2", got)
	}
}

func TestCollector_SourceMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordSourceFetch("crm", "success", 95*time.Millisecond)
	collector.RecordSourceFetch("crm", "timeout", 5*time.Second)
	collector.RecordSourceError("crm", "timeout")

	fetches := testutil.ToFloat64(collector.source.fetches.WithLabelValues("crm", "success"))
	if fetches != 1 {
		t.Errorf("source_fetches_total{success} = %v, want 1", fetches)
	}

	errors := testutil.ToFloat64(collector.source.errors.WithLabelValues("crm", "timeout"))
	if errors != 1 {
		t.Errorf("source_errors_total = %v, want 1", errors)
	}

	collector.UpdateSourceHealth("crm", true)
	if got := testutil.ToFloat64(collector.source.health.WithLabelValues("crm")); got != 1 {
		t.Errorf("source_health = %v, want 1", got)
	}

	collector.UpdateSourceHealth("crm", false)
	if got := testutil.ToFloat64(collector.source.health.WithLabelValues("crm")); got != 0 {
		t.Errorf("source_health = %v, want 0", got)
	}
}

func TestCollector_PolicyMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordPolicyDecision("loan_assessment", "allow", 40*time.Microsecond)
	collector.RecordPolicyDecision("loan_assessment", "deny", 35*time.Microsecond)
	collector.RecordPolicyReload("success")
	collector.UpdatePoliciesLoaded(7)

	allow := testutil.ToFloat64(collector.policy.decisions.WithLabelValues("loan_assessment", "allow"))
	if allow != 1 {
		t.Errorf("policy_decisions_total{allow} = %v, want 1", allow)
	}

	reloads := testutil.ToFloat64(collector.policy.reloads.WithLabelValues("success"))
	if reloads != 1 {
		t.Errorf("policy_reloads_total = %v, want 1", reloads)
	}

	if got := testutil.ToFloat64(collector.policy.loaded); got != 7 {
		t.Errorf("policies_loaded = %v, want 7", got)
	}
}

func TestCollector_CacheMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordCacheHit("memory")
	collector.RecordCacheHit("memory")
	collector.RecordCacheMiss("memory")
	collector.RecordCacheEviction("memory")
	collector.UpdateCacheEntries("memory", 42)

	if got := testutil.ToFloat64(collector.cache.hits.WithLabelValues("memory")); got != 2 {
		t.Errorf("cache_hits_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.cache.misses.WithLabelValues("memory")); got != 1 {
		t.Errorf("cache_misses_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.cache.evictions.WithLabelValues("memory")); got != 1 {
		t.Errorf("cache_evictions_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.cache.entries.WithLabelValues("memory")); got != 42 {
		t.Errorf("cache_entries = %v, want 42", got)
	}
}

func TestCollector_AuditMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordAuditAppend("success", 2*time.Millisecond)
	collector.RecordAuditAppend("error", 5*time.Millisecond)
	collector.RecordAuditPrune(12)
	collector.RecordAuditPrune(0)
	collector.RecordChainVerification("valid")

	success := testutil.ToFloat64(collector.audit.appends.WithLabelValues("success"))
	if success != 1 {
		t.Errorf("audit_appends_total{success} = %v, want 1", success)
	}

	if got := testutil.ToFloat64(collector.audit.prunedRecords); got != 12 {
		t.Errorf("audit_pruned_records_total = %v, want 12", got)
	}

	valid := testutil.ToFloat64(collector.audit.chainVerifications.WithLabelValues("valid"))
	if valid != 1 {
		t.Errorf("audit_chain_verifications_total = %v, want 1", valid)
	}
}

// A disabled collector must accept every call without registering or
// recording anything.
func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Disabled = true
	collector := NewCollector(cfg, nil)

	collector.RecordRequest("loan_assessment", "success", time.Second, 1024)
	collector.RecordStage("fanout", time.Millisecond)
	collector.RecordRedactedFields("loan_assessment", 3)
	collector.RecordQuotaRejection("loan-agent")
	collector.RecordSourceFetch("crm", "success", time.Millisecond)
	collector.RecordSourceError("crm", "timeout")
	collector.UpdateSourceHealth("crm", true)
	collector.RecordPolicyDecision("loan_assessment", "allow", time.Microsecond)
	collector.RecordPolicyReload("success")
	collector.UpdatePoliciesLoaded(3)
	collector.RecordCacheHit("memory")
	collector.RecordCacheMiss("memory")
	collector.RecordCacheEviction("memory")
	collector.UpdateCacheEntries("memory", 1)
	collector.RecordAuditAppend("success", time.Millisecond)
	collector.RecordAuditPrune(5)
	collector.RecordChainVerification("valid")

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	if len(families) != 0 {
		t.Errorf("Disabled collector registered %d metric families", len(families))
	}
}

func TestCollector_IntentFolding(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.cardinality = NewCardinalityLimiter(2)

	collector.RecordRequest("intent-a", "success", time.Millisecond, 0)
	collector.RecordRequest("intent-b", "success", time.Millisecond, 0)
	collector.RecordRequest("intent-c", "success", time.Millisecond, 0)
	collector.RecordRequest("intent-a", "success", time.Millisecond, 0)

	folded := testutil.ToFloat64(collector.request.requestsTotal.WithLabelValues("other", "success"))
	if folded != 1 {
		t.Errorf("requests_total{other} = %v, want 1", folded)
	}

	seen := testutil.ToFloat64(collector.request.requestsTotal.WithLabelValues("intent-a", "success"))
	if seen != 2 {
		t.Errorf("requests_total{intent-a} = %v, want 2", seen)
	}
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				collector.RecordRequest("loan_assessment", "success", time.Millisecond, 512)
			}
		}()
	}
	wg.Wait()

	got := testutil.ToFloat64(collector.request.requestsTotal.WithLabelValues("loan_assessment", "success"))
	if got != 1000 {
		t.Errorf("requests_total = %v, want 1000", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordRequest("loan_assessment", "success", 100*time.Millisecond, 2048)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics returned %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "test_requests_total") {
		t.Errorf("Exposition missing requests_total: %s", body[:min(len(body), 500)])
	}
}

func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(3)

	for _, set := range []string{"a", "b", "c"} {
		if !limiter.Allow(set) {
			t.Errorf("Allow(%q) = false before limit", set)
		}
	}

	if limiter.Allow("d") {
		t.Error("Allow(d) = true past limit")
	}

	// Known sets stay allowed after the limit is hit.
	if !limiter.Allow("a") {
		t.Error("Allow(a) = false for known set")
	}

	if got := limiter.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
}

func TestCardinalityLimiter_Concurrent(t *testing.T) {
	limiter := NewCardinalityLimiter(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				limiter.Allow("set-" + string(rune('a'+j%26)))
			}
		}()
	}
	wg.Wait()

	if got := limiter.Count(); got != 26 {
		t.Errorf("Count() = %d, want 26", got)
	}
}
