package config

import "time"

// Config is the root configuration structure for Ganymede. It contains
// all configuration sections for the HTTP server, identity verification,
// policy loading, upstream sources, fan-out, caching, the audit trail,
// request quotas, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen
	// address, timeouts, CORS, and TLS.
	Server ServerConfig `yaml:"server"`

	// Identity contains caller verification configuration.
	Identity IdentityConfig `yaml:"identity"`

	// Policy contains configuration for intent policy loading: a local
	// directory or a git repository.
	Policy PolicyConfig `yaml:"policy"`

	// Sources contains the upstream source connectors, keyed by the
	// source name policies refer to.
	Sources map[string]SourceConfig `yaml:"sources"`

	// Fanout contains timeouts and concurrency caps for parallel
	// source fetching.
	Fanout FanoutConfig `yaml:"fanout"`

	// Cache contains the source-payload cache configuration.
	Cache CacheConfig `yaml:"cache"`

	// Audit contains audit trail storage, recording, query, export,
	// and retention configuration.
	Audit AuditConfig `yaml:"audit"`

	// Limits contains per-agent request quota configuration.
	Limits LimitsConfig `yaml:"limits"`

	// Telemetry contains observability configuration: logging,
	// metrics, tracing, and health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are abandoned.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds the handling of a single context request,
	// end to end. It must leave room for the fan-out total budget.
	// Default: 30s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`

	// TLS contains TLS configuration for the server.
	TLS TLSConfig `yaml:"tls"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
// Ganymede's callers are agents, not browsers, so CORS is off unless a
// browser-facing deployment enables it.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Use ["*"] to allow all origins (not recommended for production).
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers exposed to the client.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight caching.
	// Default: 3600 (1 hour)
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials are allowed.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// TLSConfig contains TLS configuration for the server.
type TLSConfig struct {
	// Enabled controls whether the server terminates TLS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the TLS certificate file.
	// Required when Enabled is true.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the TLS private key file.
	// Required when Enabled is true.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version to accept.
	// Options: "1.2", "1.3"
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`
}

// IdentityConfig contains caller verification configuration.
type IdentityConfig struct {
	// Mode selects the verifier.
	// Options: "static" (configured agent table), "jwt" (HMAC-signed tokens)
	// Default: "static"
	Mode string `yaml:"mode"`

	// Agents is the agent table for the static verifier.
	Agents []AgentConfig `yaml:"agents"`

	// JWT configures the JWT verifier.
	JWT JWTConfig `yaml:"jwt"`
}

// AgentConfig describes one agent for the static verifier.
type AgentConfig struct {
	// ID is the stable agent identifier recorded in provenance and
	// audit records.
	ID string `yaml:"id"`

	// Token is the bearer token the agent presents.
	Token string `yaml:"token"`

	// Disabled temporarily takes the agent out of service without
	// removing its entry.
	// Default: false
	Disabled bool `yaml:"disabled"`

	// Scopes are the delegation scopes attached to the agent.
	Scopes []string `yaml:"scopes"`

	// Intents are the intent names the agent may request.
	Intents []string `yaml:"intents"`
}

// JWTConfig contains JWT verifier configuration.
type JWTConfig struct {
	// Secret is the HMAC signing secret. Supports environment
	// injection via GANYMEDE_IDENTITY_JWT_SECRET.
	// Required when identity mode is "jwt".
	Secret string `yaml:"secret"`

	// Issuer, when set, must match the token's iss claim.
	Issuer string `yaml:"issuer"`

	// Audience, when set, must be present in the token's aud claim.
	Audience string `yaml:"audience"`
}

// PolicyConfig contains configuration for intent policy loading.
type PolicyConfig struct {
	// Mode specifies how policies are loaded.
	// Options: "dir" (local directory), "git" (git repository)
	// Default: "dir"
	Mode string `yaml:"mode"`

	// Dir is the policy directory when Mode is "dir".
	// Default: "./policies"
	Dir string `yaml:"dir"`

	// Watch enables automatic reloading when policy files change.
	// Only used when Mode is "dir".
	// Default: false
	Watch bool `yaml:"watch"`

	// Git contains git repository configuration.
	// Used when Mode is "git".
	Git GitPolicyConfig `yaml:"git"`
}

// GitPolicyConfig configures git-based policy loading.
type GitPolicyConfig struct {
	// Repository URL (HTTPS or SSH).
	// Example: "https://github.com/company/policies.git"
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path within the repository to the policy directory.
	// Default: "" (repository root)
	Path string `yaml:"path"`

	// LocalPath where the repository is cloned.
	// Default: system temp directory
	LocalPath string `yaml:"local_path"`

	// CleanOnStart removes the local clone before cloning.
	// Default: false
	CleanOnStart bool `yaml:"clean_on_start"`

	// Depth for shallow clones (0 = full clone).
	// Default: 1
	Depth int `yaml:"depth"`

	// Auth configures repository authentication.
	Auth GitAuthConfig `yaml:"auth"`

	// Poll configures change detection.
	Poll GitPollConfig `yaml:"poll"`
}

// GitAuthConfig configures git authentication.
type GitAuthConfig struct {
	// Type: "token", "ssh", "none"
	// Default: "none"
	Type string `yaml:"type"`

	// Token for HTTPS authentication.
	// Required when Type is "token".
	Token string `yaml:"token"`

	// SSHKeyPath for SSH authentication.
	// Required when Type is "ssh".
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase for encrypted SSH keys. Optional.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// GitPollConfig configures git change detection.
type GitPollConfig struct {
	// Disabled turns change polling off. Policies are then loaded
	// once at startup.
	// Default: false
	Disabled bool `yaml:"disabled"`

	// Interval between polls.
	// Default: 30s
	Interval time.Duration `yaml:"interval"`

	// Timeout for git network operations.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// SourceConfig contains configuration for a single upstream source.
// The set of meaningful fields depends on Type.
type SourceConfig struct {
	// Type is the connector type.
	// Options: "static", "http", "postgres", "mysql"
	Type string `yaml:"type"`

	// Records is the inline fixture set for static sources, keyed by
	// subject key.
	Records map[string]map[string]any `yaml:"records"`

	// FixtureFile is a YAML file of fixture records for static
	// sources. When Records is also set, inline records overlay the
	// file's records key by key.
	FixtureFile string `yaml:"fixture_file"`

	// URL is the upstream base URL for http sources.
	// Example: "https://crm.internal:8443"
	URL string `yaml:"url"`

	// PathTemplate is the request path with a "{key}" placeholder for
	// http sources. Example: "/v1/customers/{key}"
	PathTemplate string `yaml:"path_template"`

	// KeyParam names a query parameter to carry the subject key for
	// http sources when PathTemplate has no placeholder.
	KeyParam string `yaml:"key_param"`

	// HealthPath is the health check path for http sources.
	HealthPath string `yaml:"health_path"`

	// Headers are sent with every request for http sources.
	Headers map[string]string `yaml:"headers"`

	// BearerToken, when set, is sent as an Authorization header for
	// http sources. Supports environment injection via
	// GANYMEDE_SOURCES_<NAME>_BEARER_TOKEN.
	BearerToken string `yaml:"bearer_token"`

	// MaxRetries is the retry count for http sources.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// MaxResponseBytes caps http response bodies.
	// Default: 10485760 (10MB)
	MaxResponseBytes int64 `yaml:"max_response_bytes"`

	// DSN is the connection string for postgres and mysql sources.
	// Supports environment injection via GANYMEDE_SOURCES_<NAME>_DSN.
	DSN string `yaml:"dsn"`

	// Query is the single-row lookup statement for postgres and mysql
	// sources. It must take the subject key as its only parameter.
	// Example: "SELECT name, annual_income FROM customers WHERE id = $1"
	Query string `yaml:"query"`

	// Timeout bounds each fetch against this source.
	// Default: 10s (http), 5s (postgres/mysql)
	Timeout time.Duration `yaml:"timeout"`

	// MaxOpenConns caps the connection pool for database sources.
	// Default: 16
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns caps idle pooled connections for database sources.
	// Default: 4
	MaxIdleConns int `yaml:"max_idle_conns"`

	// ConnMaxLifetime recycles pooled connections for database sources.
	// Default: 5m
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// FanoutConfig contains fan-out stage configuration.
type FanoutConfig struct {
	// SourceTimeout bounds each individual source fetch.
	// Default: 5s
	SourceTimeout time.Duration `yaml:"source_timeout"`

	// TotalTimeout bounds the whole fan-out stage.
	// Default: 10s
	TotalTimeout time.Duration `yaml:"total_timeout"`

	// MaxConcurrent caps parallel upstream fetches per request.
	// Default: 8
	MaxConcurrent int `yaml:"max_concurrent"`
}

// CacheConfig contains source-payload cache configuration.
type CacheConfig struct {
	// Backend selects the cache backend.
	// Options: "memory", "redis"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Memory contains memory backend configuration.
	Memory MemoryCacheConfig `yaml:"memory"`

	// Redis contains redis backend configuration.
	Redis RedisCacheConfig `yaml:"redis"`
}

// MemoryCacheConfig contains memory cache configuration.
type MemoryCacheConfig struct {
	// MaxEntries caps the number of cached payloads.
	// Default: 10000
	MaxEntries int `yaml:"max_entries"`
}

// RedisCacheConfig contains redis cache configuration.
type RedisCacheConfig struct {
	// URL is the redis connection URL.
	// Example: "redis://localhost:6379/0"
	// Default: "redis://localhost:6379"
	URL string `yaml:"url"`

	// KeyPrefix namespaces this instance's keys.
	// Default: "ganymede:cache"
	KeyPrefix string `yaml:"key_prefix"`

	// DialTimeout bounds the initial connection check.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// AuditConfig contains audit trail configuration. The trail itself is
// not optional; only its backend and retention are configurable.
type AuditConfig struct {
	// Backend specifies the storage backend for audit records.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite AuditSQLiteConfig `yaml:"sqlite"`

	// Memory contains memory backend configuration.
	Memory AuditMemoryConfig `yaml:"memory"`

	// Recorder contains recorder configuration.
	Recorder AuditRecorderConfig `yaml:"recorder"`

	// Query contains audit query endpoint configuration.
	Query AuditQueryConfig `yaml:"query"`

	// Export contains export configuration.
	Export AuditExportConfig `yaml:"export"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// AuditSQLiteConfig contains SQLite audit storage configuration.
type AuditSQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/ganymede-audit.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long a statement waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// AuditMemoryConfig contains memory audit storage configuration.
type AuditMemoryConfig struct {
	// MaxRecords caps the in-memory trail. Appends beyond the cap
	// fail rather than evict, since eviction would break the chain.
	// Default: 100000
	MaxRecords int `yaml:"max_records"`
}

// AuditRecorderConfig contains audit recorder configuration.
type AuditRecorderConfig struct {
	// WriteTimeout bounds each audit append. A request fails if its
	// audit record cannot be written within this window.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AuditQueryConfig contains audit query endpoint configuration.
type AuditQueryConfig struct {
	// DefaultLimit is the page size when the request names none.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the largest page size a request may ask for.
	// Default: 1000
	MaxLimit int `yaml:"max_limit"`

	// Timeout bounds audit query execution.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// AuditExportConfig contains audit export configuration.
type AuditExportConfig struct {
	// Compact emits JSON exports without indentation.
	// Default: false
	Compact bool `yaml:"compact"`
}

// RetentionConfig contains audit retention configuration.
type RetentionConfig struct {
	// Enabled controls whether scheduled pruning runs.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// MaxAgeDays removes records older than this many days.
	// Default: 90
	MaxAgeDays int `yaml:"max_age_days"`

	// MaxRecords caps the trail length. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// Schedule is a cron expression for the prune job.
	// Default: "0 3 * * *" (daily at 3 AM)
	Schedule string `yaml:"schedule"`

	// Archive writes pruned records to a JSON file before deletion.
	// Default: false
	Archive bool `yaml:"archive"`

	// ArchiveDir is the directory for archive files.
	// Default: "data/archives"
	ArchiveDir string `yaml:"archive_dir"`
}

// LimitsConfig contains per-agent request quota configuration.
type LimitsConfig struct {
	// Enabled turns quota enforcement on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// DefaultQuota applies to agents without a per-agent entry.
	// Zero values mean unlimited.
	DefaultQuota QuotaConfig `yaml:"default_quota"`

	// PerAgent overrides the default quota for specific agents,
	// keyed by agent id.
	PerAgent map[string]QuotaConfig `yaml:"per_agent"`

	// IdleExpiry is how long an agent's counters are kept after its
	// last request.
	// Default: 24h
	IdleExpiry time.Duration `yaml:"idle_expiry"`

	// CleanupInterval is how often idle counters are swept.
	// Default: 1h
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// Storage configures the quota storage backend.
	Storage LimitsStorageConfig `yaml:"storage"`
}

// QuotaConfig is a request quota over rolling windows.
type QuotaConfig struct {
	// RequestsPerMinute caps requests over a rolling minute.
	// 0 means unlimited.
	RequestsPerMinute int64 `yaml:"requests_per_minute"`

	// RequestsPerHour caps requests over a rolling hour.
	// 0 means unlimited.
	RequestsPerHour int64 `yaml:"requests_per_hour"`
}

// LimitsStorageConfig configures the quota storage backend.
type LimitsStorageConfig struct {
	// Backend specifies the storage backend.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite LimitsSQLiteConfig `yaml:"sqlite"`
}

// LimitsSQLiteConfig contains SQLite quota storage configuration.
type LimitsSQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/ganymede-quotas.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long a statement waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPatterns contains custom redaction patterns applied in
	// addition to the built-in token and secret patterns. Redaction
	// itself is always on.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom log redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Disabled turns the Prometheus endpoint and collectors off.
	// Default: false
	Disabled bool `yaml:"disabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "ganymede"
	Namespace string `yaml:"namespace"`

	// RequestDurationBuckets defines histogram buckets for request
	// duration (seconds).
	// Default: [0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the collector connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds trace exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name in traces.
	// Default: "ganymede"
	ServiceName string `yaml:"service_name"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Disabled turns the liveness and readiness endpoints off.
	// Default: false
	Disabled bool `yaml:"disabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/healthz"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/readyz"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
