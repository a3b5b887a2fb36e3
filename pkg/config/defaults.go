package config

import "time"

// Default values for server configuration.
const (
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20 // 1MB
	DefaultCORSMaxAge      = 3600
	DefaultTLSMinVersion   = "1.3"
)

// Default values for identity configuration.
const (
	DefaultIdentityMode = "static"
)

// Default values for policy configuration.
const (
	DefaultPolicyMode      = "dir"
	DefaultPolicyDir       = "./policies"
	DefaultGitBranch       = "main"
	DefaultGitDepth        = 1
	DefaultGitAuthType     = "none"
	DefaultGitPollInterval = 30 * time.Second
	DefaultGitPollTimeout  = 10 * time.Second
)

// Default values for source configuration.
const (
	DefaultHTTPSourceTimeout      = 10 * time.Second
	DefaultSQLSourceTimeout       = 5 * time.Second
	DefaultSourceMaxRetries       = 2
	DefaultSourceMaxResponseBytes = 10 << 20 // 10MB
	DefaultSourceMaxOpenConns     = 16
	DefaultSourceMaxIdleConns     = 4
	DefaultSourceConnMaxLifetime  = 5 * time.Minute
)

// Default values for fan-out configuration.
const (
	DefaultFanoutSourceTimeout = 5 * time.Second
	DefaultFanoutTotalTimeout  = 10 * time.Second
	DefaultFanoutMaxConcurrent = 8
)

// Default values for cache configuration.
const (
	DefaultCacheBackend     = "memory"
	DefaultCacheMaxEntries  = 10000
	DefaultRedisURL         = "redis://localhost:6379"
	DefaultRedisKeyPrefix   = "ganymede:cache"
	DefaultRedisDialTimeout = 5 * time.Second
)

// Default values for audit configuration.
const (
	DefaultAuditBackend        = "sqlite"
	DefaultAuditSQLitePath     = "data/ganymede-audit.db"
	DefaultAuditBusyTimeout    = 5 * time.Second
	DefaultAuditMaxRecords     = 100000
	DefaultAuditWriteTimeout   = 5 * time.Second
	DefaultAuditQueryLimit     = 100
	DefaultAuditQueryMaxLimit  = 1000
	DefaultAuditQueryTimeout   = 30 * time.Second
	DefaultRetentionMaxAgeDays = 90
	DefaultRetentionSchedule   = "0 3 * * *"
	DefaultRetentionArchiveDir = "data/archives"
)

// Default values for limits configuration.
const (
	DefaultLimitsIdleExpiry         = 24 * time.Hour
	DefaultLimitsCleanupInterval    = time.Hour
	DefaultLimitsBackend            = "memory"
	DefaultLimitsSQLitePath         = "data/ganymede-quotas.db"
	DefaultLimitsBusyTimeout        = 5 * time.Second
	DefaultLimitsCheckpointInterval = 5 * time.Minute
)

// Default values for telemetry configuration.
const (
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "ganymede"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingService     = "ganymede"
	DefaultLivenessPath       = "/healthz"
	DefaultReadinessPath      = "/readyz"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// DefaultRequestDurationBuckets returns the default histogram buckets
// for request duration metrics, in seconds.
func DefaultRequestDurationBuckets() []float64 {
	return []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}
}

// ApplyDefaults fills in default values for any unset fields. It is
// called by LoadConfig after parsing and before validation, so an
// empty file yields a fully usable configuration.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyIdentityDefaults(&cfg.Identity)
	applyPolicyDefaults(&cfg.Policy)
	for name, src := range cfg.Sources {
		applySourceDefaults(&src)
		cfg.Sources[name] = src
	}
	applyFanoutDefaults(&cfg.Fanout)
	applyCacheDefaults(&cfg.Cache)
	applyAuditDefaults(&cfg.Audit)
	applyLimitsDefaults(&cfg.Limits)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.CORS.AllowedOrigins == nil {
		s.CORS.AllowedOrigins = []string{"*"}
	}
	if s.CORS.AllowedMethods == nil {
		s.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if s.CORS.AllowedHeaders == nil {
		s.CORS.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if s.CORS.ExposedHeaders == nil {
		s.CORS.ExposedHeaders = []string{"X-Request-ID"}
	}
	if s.CORS.MaxAge == 0 {
		s.CORS.MaxAge = DefaultCORSMaxAge
	}
	if s.TLS.MinVersion == "" {
		s.TLS.MinVersion = DefaultTLSMinVersion
	}
}

func applyIdentityDefaults(i *IdentityConfig) {
	if i.Mode == "" {
		i.Mode = DefaultIdentityMode
	}
}

func applyPolicyDefaults(p *PolicyConfig) {
	if p.Mode == "" {
		p.Mode = DefaultPolicyMode
	}
	if p.Dir == "" {
		p.Dir = DefaultPolicyDir
	}
	if p.Git.Branch == "" {
		p.Git.Branch = DefaultGitBranch
	}
	if p.Git.Depth == 0 {
		p.Git.Depth = DefaultGitDepth
	}
	if p.Git.Auth.Type == "" {
		p.Git.Auth.Type = DefaultGitAuthType
	}
	if p.Git.Poll.Interval == 0 {
		p.Git.Poll.Interval = DefaultGitPollInterval
	}
	if p.Git.Poll.Timeout == 0 {
		p.Git.Poll.Timeout = DefaultGitPollTimeout
	}
}

func applySourceDefaults(s *SourceConfig) {
	switch s.Type {
	case "http":
		if s.Timeout == 0 {
			s.Timeout = DefaultHTTPSourceTimeout
		}
		if s.MaxRetries == 0 {
			s.MaxRetries = DefaultSourceMaxRetries
		}
		if s.MaxResponseBytes == 0 {
			s.MaxResponseBytes = DefaultSourceMaxResponseBytes
		}
	case "postgres", "mysql":
		if s.Timeout == 0 {
			s.Timeout = DefaultSQLSourceTimeout
		}
		if s.MaxOpenConns == 0 {
			s.MaxOpenConns = DefaultSourceMaxOpenConns
		}
		if s.MaxIdleConns == 0 {
			s.MaxIdleConns = DefaultSourceMaxIdleConns
		}
		if s.ConnMaxLifetime == 0 {
			s.ConnMaxLifetime = DefaultSourceConnMaxLifetime
		}
	}
}

func applyFanoutDefaults(f *FanoutConfig) {
	if f.SourceTimeout == 0 {
		f.SourceTimeout = DefaultFanoutSourceTimeout
	}
	if f.TotalTimeout == 0 {
		f.TotalTimeout = DefaultFanoutTotalTimeout
	}
	if f.MaxConcurrent == 0 {
		f.MaxConcurrent = DefaultFanoutMaxConcurrent
	}
}

func applyCacheDefaults(c *CacheConfig) {
	if c.Backend == "" {
		c.Backend = DefaultCacheBackend
	}
	if c.Memory.MaxEntries == 0 {
		c.Memory.MaxEntries = DefaultCacheMaxEntries
	}
	if c.Redis.URL == "" {
		c.Redis.URL = DefaultRedisURL
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = DefaultRedisDialTimeout
	}
}

func applyAuditDefaults(a *AuditConfig) {
	if a.Backend == "" {
		a.Backend = DefaultAuditBackend
	}
	if a.SQLite.Path == "" {
		a.SQLite.Path = DefaultAuditSQLitePath
	}
	if a.SQLite.BusyTimeout == 0 {
		a.SQLite.BusyTimeout = DefaultAuditBusyTimeout
	}
	if a.Memory.MaxRecords == 0 {
		a.Memory.MaxRecords = DefaultAuditMaxRecords
	}
	if a.Recorder.WriteTimeout == 0 {
		a.Recorder.WriteTimeout = DefaultAuditWriteTimeout
	}
	if a.Query.DefaultLimit == 0 {
		a.Query.DefaultLimit = DefaultAuditQueryLimit
	}
	if a.Query.MaxLimit == 0 {
		a.Query.MaxLimit = DefaultAuditQueryMaxLimit
	}
	if a.Query.Timeout == 0 {
		a.Query.Timeout = DefaultAuditQueryTimeout
	}
	if a.Retention.MaxAgeDays == 0 {
		a.Retention.MaxAgeDays = DefaultRetentionMaxAgeDays
	}
	if a.Retention.Schedule == "" {
		a.Retention.Schedule = DefaultRetentionSchedule
	}
	if a.Retention.ArchiveDir == "" {
		a.Retention.ArchiveDir = DefaultRetentionArchiveDir
	}
}

func applyLimitsDefaults(l *LimitsConfig) {
	if l.IdleExpiry == 0 {
		l.IdleExpiry = DefaultLimitsIdleExpiry
	}
	if l.CleanupInterval == 0 {
		l.CleanupInterval = DefaultLimitsCleanupInterval
	}
	if l.Storage.Backend == "" {
		l.Storage.Backend = DefaultLimitsBackend
	}
	if l.Storage.SQLite.Path == "" {
		l.Storage.SQLite.Path = DefaultLimitsSQLitePath
	}
	if l.Storage.SQLite.BusyTimeout == 0 {
		l.Storage.SQLite.BusyTimeout = DefaultLimitsBusyTimeout
	}
	if l.Storage.SQLite.CheckpointInterval == 0 {
		l.Storage.SQLite.CheckpointInterval = DefaultLimitsCheckpointInterval
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.RequestDurationBuckets == nil {
		t.Metrics.RequestDurationBuckets = DefaultRequestDurationBuckets()
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingService
	}
	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
