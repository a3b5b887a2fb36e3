package config

import (
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input Config
		check func(*testing.T, *Config)
	}{
		{
			name:  "empty config gets all defaults",
			input: Config{},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.ListenAddress != DefaultListenAddress {
					t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
				}
				if cfg.Server.ReadTimeout != DefaultReadTimeout {
					t.Errorf("expected read timeout %v, got %v", DefaultReadTimeout, cfg.Server.ReadTimeout)
				}
				if cfg.Server.WriteTimeout != DefaultWriteTimeout {
					t.Errorf("expected write timeout %v, got %v", DefaultWriteTimeout, cfg.Server.WriteTimeout)
				}
				if cfg.Server.RequestTimeout != DefaultRequestTimeout {
					t.Errorf("expected request timeout %v, got %v", DefaultRequestTimeout, cfg.Server.RequestTimeout)
				}
				if cfg.Server.MaxHeaderBytes != DefaultMaxHeaderBytes {
					t.Errorf("expected max header bytes %d, got %d", DefaultMaxHeaderBytes, cfg.Server.MaxHeaderBytes)
				}
				if cfg.Server.TLS.MinVersion != DefaultTLSMinVersion {
					t.Errorf("expected TLS min version %q, got %q", DefaultTLSMinVersion, cfg.Server.TLS.MinVersion)
				}
				if cfg.Identity.Mode != DefaultIdentityMode {
					t.Errorf("expected identity mode %q, got %q", DefaultIdentityMode, cfg.Identity.Mode)
				}
				if cfg.Policy.Mode != DefaultPolicyMode {
					t.Errorf("expected policy mode %q, got %q", DefaultPolicyMode, cfg.Policy.Mode)
				}
				if cfg.Policy.Dir != DefaultPolicyDir {
					t.Errorf("expected policy dir %q, got %q", DefaultPolicyDir, cfg.Policy.Dir)
				}
				if cfg.Policy.Git.Branch != DefaultGitBranch {
					t.Errorf("expected git branch %q, got %q", DefaultGitBranch, cfg.Policy.Git.Branch)
				}
				if cfg.Policy.Git.Poll.Interval != DefaultGitPollInterval {
					t.Errorf("expected poll interval %v, got %v", DefaultGitPollInterval, cfg.Policy.Git.Poll.Interval)
				}
				if cfg.Fanout.SourceTimeout != DefaultFanoutSourceTimeout {
					t.Errorf("expected fanout source timeout %v, got %v", DefaultFanoutSourceTimeout, cfg.Fanout.SourceTimeout)
				}
				if cfg.Fanout.TotalTimeout != DefaultFanoutTotalTimeout {
					t.Errorf("expected fanout total timeout %v, got %v", DefaultFanoutTotalTimeout, cfg.Fanout.TotalTimeout)
				}
				if cfg.Fanout.MaxConcurrent != DefaultFanoutMaxConcurrent {
					t.Errorf("expected fanout max concurrent %d, got %d", DefaultFanoutMaxConcurrent, cfg.Fanout.MaxConcurrent)
				}
				if cfg.Cache.Backend != DefaultCacheBackend {
					t.Errorf("expected cache backend %q, got %q", DefaultCacheBackend, cfg.Cache.Backend)
				}
				if cfg.Cache.Memory.MaxEntries != DefaultCacheMaxEntries {
					t.Errorf("expected cache max entries %d, got %d", DefaultCacheMaxEntries, cfg.Cache.Memory.MaxEntries)
				}
				if cfg.Audit.Backend != DefaultAuditBackend {
					t.Errorf("expected audit backend %q, got %q", DefaultAuditBackend, cfg.Audit.Backend)
				}
				if cfg.Audit.SQLite.Path != DefaultAuditSQLitePath {
					t.Errorf("expected audit SQLite path %q, got %q", DefaultAuditSQLitePath, cfg.Audit.SQLite.Path)
				}
				if cfg.Audit.Query.DefaultLimit != DefaultAuditQueryLimit {
					t.Errorf("expected audit query limit %d, got %d", DefaultAuditQueryLimit, cfg.Audit.Query.DefaultLimit)
				}
				if cfg.Audit.Retention.Schedule != DefaultRetentionSchedule {
					t.Errorf("expected retention schedule %q, got %q", DefaultRetentionSchedule, cfg.Audit.Retention.Schedule)
				}
				if cfg.Limits.IdleExpiry != DefaultLimitsIdleExpiry {
					t.Errorf("expected limits idle expiry %v, got %v", DefaultLimitsIdleExpiry, cfg.Limits.IdleExpiry)
				}
				if cfg.Limits.Storage.Backend != DefaultLimitsBackend {
					t.Errorf("expected limits storage backend %q, got %q", DefaultLimitsBackend, cfg.Limits.Storage.Backend)
				}
				if cfg.Telemetry.Logging.Level != DefaultLogLevel {
					t.Errorf("expected logging level %q, got %q", DefaultLogLevel, cfg.Telemetry.Logging.Level)
				}
				if cfg.Telemetry.Logging.Format != DefaultLogFormat {
					t.Errorf("expected logging format %q, got %q", DefaultLogFormat, cfg.Telemetry.Logging.Format)
				}
				if cfg.Telemetry.Metrics.Path != DefaultMetricsPath {
					t.Errorf("expected metrics path %q, got %q", DefaultMetricsPath, cfg.Telemetry.Metrics.Path)
				}
				if cfg.Telemetry.Metrics.Namespace != DefaultMetricsNamespace {
					t.Errorf("expected metrics namespace %q, got %q", DefaultMetricsNamespace, cfg.Telemetry.Metrics.Namespace)
				}
				if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
					t.Error("expected default request duration buckets to be populated")
				}
				if cfg.Telemetry.Tracing.Sampler != DefaultTracingSampler {
					t.Errorf("expected tracing sampler %q, got %q", DefaultTracingSampler, cfg.Telemetry.Tracing.Sampler)
				}
				if cfg.Telemetry.Tracing.ServiceName != DefaultTracingService {
					t.Errorf("expected tracing service %q, got %q", DefaultTracingService, cfg.Telemetry.Tracing.ServiceName)
				}
				if cfg.Telemetry.Health.LivenessPath != DefaultLivenessPath {
					t.Errorf("expected liveness path %q, got %q", DefaultLivenessPath, cfg.Telemetry.Health.LivenessPath)
				}
				if cfg.Telemetry.Health.ReadinessPath != DefaultReadinessPath {
					t.Errorf("expected readiness path %q, got %q", DefaultReadinessPath, cfg.Telemetry.Health.ReadinessPath)
				}
			},
		},
		{
			name: "existing values are preserved",
			input: Config{
				Server: ServerConfig{
					ListenAddress:  "192.168.1.1:9090",
					ReadTimeout:    60 * time.Second,
					MaxHeaderBytes: 2097152,
				},
				Cache: CacheConfig{Backend: "redis"},
				Telemetry: TelemetryConfig{
					Logging: LoggingConfig{Level: "debug"},
				},
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.ListenAddress != "192.168.1.1:9090" {
					t.Error("existing listen address was overwritten")
				}
				if cfg.Server.ReadTimeout != 60*time.Second {
					t.Error("existing read timeout was overwritten")
				}
				if cfg.Server.MaxHeaderBytes != 2097152 {
					t.Error("existing max header bytes was overwritten")
				}
				if cfg.Cache.Backend != "redis" {
					t.Error("existing cache backend was overwritten")
				}
				if cfg.Telemetry.Logging.Level != "debug" {
					t.Error("existing logging level was overwritten")
				}
				// Check that unset values got defaults
				if cfg.Server.WriteTimeout != DefaultWriteTimeout {
					t.Error("write timeout should get default when not set")
				}
				if cfg.Telemetry.Logging.Format != DefaultLogFormat {
					t.Error("logging format should get default when not set")
				}
			},
		},
		{
			name: "http source defaults applied",
			input: Config{
				Sources: map[string]SourceConfig{
					"crm": {
						Type: "http",
						URL:  "https://crm.internal:8443",
						// Timeout, MaxRetries, and MaxResponseBytes not set
					},
				},
			},
			check: func(t *testing.T, cfg *Config) {
				src := cfg.Sources["crm"]
				if src.Timeout != DefaultHTTPSourceTimeout {
					t.Errorf("expected source timeout %v, got %v", DefaultHTTPSourceTimeout, src.Timeout)
				}
				if src.MaxRetries != DefaultSourceMaxRetries {
					t.Errorf("expected source max retries %d, got %d", DefaultSourceMaxRetries, src.MaxRetries)
				}
				if src.MaxResponseBytes != DefaultSourceMaxResponseBytes {
					t.Errorf("expected max response bytes %d, got %d", DefaultSourceMaxResponseBytes, src.MaxResponseBytes)
				}
				// Verify existing values preserved
				if src.URL != "https://crm.internal:8443" {
					t.Error("existing URL was overwritten")
				}
			},
		},
		{
			name: "sql source defaults applied",
			input: Config{
				Sources: map[string]SourceConfig{
					"ledger": {
						Type:  "postgres",
						DSN:   "postgres://db/ledger",
						Query: "SELECT balance FROM accounts WHERE id = $1",
						// Pool settings not set
					},
				},
			},
			check: func(t *testing.T, cfg *Config) {
				src := cfg.Sources["ledger"]
				if src.Timeout != DefaultSQLSourceTimeout {
					t.Errorf("expected source timeout %v, got %v", DefaultSQLSourceTimeout, src.Timeout)
				}
				if src.MaxOpenConns != DefaultSourceMaxOpenConns {
					t.Errorf("expected max open conns %d, got %d", DefaultSourceMaxOpenConns, src.MaxOpenConns)
				}
				if src.MaxIdleConns != DefaultSourceMaxIdleConns {
					t.Errorf("expected max idle conns %d, got %d", DefaultSourceMaxIdleConns, src.MaxIdleConns)
				}
				if src.ConnMaxLifetime != DefaultSourceConnMaxLifetime {
					t.Errorf("expected conn max lifetime %v, got %v", DefaultSourceConnMaxLifetime, src.ConnMaxLifetime)
				}
			},
		},
		{
			name: "static source left untouched",
			input: Config{
				Sources: map[string]SourceConfig{
					"fixtures": {
						Type:    "static",
						Records: map[string]map[string]any{"cust-1": {"name": "Avery"}},
					},
				},
			},
			check: func(t *testing.T, cfg *Config) {
				src := cfg.Sources["fixtures"]
				if src.Timeout != 0 {
					t.Errorf("static source should not get a timeout, got %v", src.Timeout)
				}
				if src.MaxRetries != 0 {
					t.Errorf("static source should not get retries, got %d", src.MaxRetries)
				}
				if len(src.Records) != 1 {
					t.Error("existing records were modified")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.input
			ApplyDefaults(&cfg)
			tt.check(t, &cfg)
		})
	}
}

func TestApplyDefaults_CORSSliceDefaults(t *testing.T) {
	cfg := Config{}
	ApplyDefaults(&cfg)

	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		t.Error("expected default allowed origins")
	}
	if len(cfg.Server.CORS.AllowedMethods) == 0 {
		t.Error("expected default allowed methods")
	}
	if cfg.Server.CORS.MaxAge != DefaultCORSMaxAge {
		t.Errorf("expected CORS max age %d, got %d", DefaultCORSMaxAge, cfg.Server.CORS.MaxAge)
	}

	// Explicit slices survive a second pass.
	cfg.Server.CORS.AllowedOrigins = []string{"https://console.internal"}
	ApplyDefaults(&cfg)
	if len(cfg.Server.CORS.AllowedOrigins) != 1 {
		t.Error("existing allowed origins were overwritten")
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := Config{}

	// Apply defaults twice
	ApplyDefaults(&cfg)
	firstPass := cfg.Server.ListenAddress

	ApplyDefaults(&cfg)
	secondPass := cfg.Server.ListenAddress

	if firstPass != secondPass {
		t.Error("ApplyDefaults should be idempotent")
	}
}
