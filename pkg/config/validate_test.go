package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := MinimalConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_BuilderVariants(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{
			name: "jwt identity",
			cfg:  NewTestConfig().WithJWT(strings.Repeat("s", 32)).Build(),
		},
		{
			name: "git policy",
			cfg:  NewTestConfig().WithPolicyGitRepo("https://github.com/company/policies.git").Build(),
		},
		{
			name: "http and sql sources",
			cfg: NewTestConfig().
				WithSource("crm", SourceConfig{Type: "http", URL: "https://crm.internal:8443"}).
				WithSource("ledger", SourceConfig{Type: "postgres", DSN: "postgres://db/ledger", Query: "SELECT 1"}).
				Build(),
		},
		{
			name: "redis cache",
			cfg:  NewTestConfig().WithCacheBackend("redis").Build(),
		},
		{
			name: "memory audit",
			cfg:  NewTestConfig().WithAuditBackend("memory").Build(),
		},
		{
			name: "quotas enabled",
			cfg:  NewTestConfig().WithQuota(60).Build(),
		},
		{
			name: "tracing enabled",
			cfg:  NewTestConfig().WithTracing("localhost:4317").Build(),
		},
		{
			name: "tls enabled",
			cfg:  NewTestConfig().WithTLS("server.crt", "server.key").Build(),
		},
		{
			name: "alternate listen address and policy dir",
			cfg:  NewTestConfig().WithListenAddress("0.0.0.0:9443").WithPolicyDir("/etc/ganymede/policies").Build(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.cfg); err != nil {
				t.Errorf("expected config to pass validation, got: %v", err)
			}
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	// A zero config misses required fields in several sections.
	cfg := &Config{}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	validationErr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	if len(validationErr.Errors) < 2 {
		t.Errorf("expected multiple errors, got %d", len(validationErr.Errors))
	}

	errMsg := validationErr.Error()
	if !strings.Contains(errMsg, "validation failed with") {
		t.Errorf("error message should mention multiple errors: %s", errMsg)
	}
}

func TestFieldError_Error(t *testing.T) {
	err := FieldError{Field: "server.listen_address", Message: "listen address is required"}
	want := "server.listen_address: listen address is required"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestValidationError_SingleError(t *testing.T) {
	err := ValidationError{Errors: []FieldError{
		{Field: "policy.mode", Message: "mode is required"},
	}}
	msg := err.Error()
	if !strings.Contains(msg, "policy.mode: mode is required") {
		t.Errorf("expected single-error message to name the field, got %q", msg)
	}
	if strings.Contains(msg, "errors") {
		t.Errorf("single-error message should not mention an error count, got %q", msg)
	}
}

// checkFieldErrors asserts that errs contains (or not) an error for field.
func checkFieldErrors(t *testing.T, errs []FieldError, wantError bool, field string) {
	t.Helper()
	if !wantError {
		if len(errs) > 0 {
			t.Errorf("expected no validation error, got: %v", errs)
		}
		return
	}
	if len(errs) == 0 {
		t.Error("expected validation error, got none")
		return
	}
	for _, err := range errs {
		if err.Field == field {
			return
		}
	}
	t.Errorf("expected error for field %q, got errors: %v", field, errs)
}

func TestValidate_ServerConfig(t *testing.T) {
	tests := []struct {
		name       string
		server     ServerConfig
		wantError  bool
		errorField string
	}{
		{
			name: "valid server config",
			server: ServerConfig{
				ListenAddress:  "127.0.0.1:8080",
				ReadTimeout:    DefaultReadTimeout,
				WriteTimeout:   DefaultWriteTimeout,
				IdleTimeout:    DefaultIdleTimeout,
				MaxHeaderBytes: DefaultMaxHeaderBytes,
			},
			wantError: false,
		},
		{
			name:       "empty listen address",
			server:     ServerConfig{},
			wantError:  true,
			errorField: "server.listen_address",
		},
		{
			name:       "listen address without port",
			server:     ServerConfig{ListenAddress: "127.0.0.1"},
			wantError:  true,
			errorField: "server.listen_address",
		},
		{
			name: "negative read timeout",
			server: ServerConfig{
				ListenAddress: "127.0.0.1:8080",
				ReadTimeout:   -1,
			},
			wantError:  true,
			errorField: "server.read_timeout",
		},
		{
			name: "excessive max header bytes",
			server: ServerConfig{
				ListenAddress:  "127.0.0.1:8080",
				MaxHeaderBytes: 20 * 1024 * 1024,
			},
			wantError:  true,
			errorField: "server.max_header_bytes",
		},
		{
			name: "cors enabled without origins",
			server: ServerConfig{
				ListenAddress: "127.0.0.1:8080",
				CORS:          CORSConfig{Enabled: true},
			},
			wantError:  true,
			errorField: "server.cors.allowed_origins",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateServer(&tt.server)
			checkFieldErrors(t, errs, tt.wantError, tt.errorField)
		})
	}
}

func TestValidate_TLSConfig(t *testing.T) {
	tests := []struct {
		name       string
		tls        TLSConfig
		wantError  bool
		errorField string
	}{
		{
			name:      "disabled",
			tls:       TLSConfig{},
			wantError: false,
		},
		{
			name: "enabled with cert pair",
			tls: TLSConfig{
				Enabled:    true,
				CertFile:   "server.crt",
				KeyFile:    "server.key",
				MinVersion: "1.3",
			},
			wantError: false,
		},
		{
			name:       "enabled without cert file",
			tls:        TLSConfig{Enabled: true, KeyFile: "server.key"},
			wantError:  true,
			errorField: "server.tls.cert_file",
		},
		{
			name:       "enabled without key file",
			tls:        TLSConfig{Enabled: true, CertFile: "server.crt"},
			wantError:  true,
			errorField: "server.tls.key_file",
		},
		{
			name:       "unsupported min version",
			tls:        TLSConfig{MinVersion: "1.1"},
			wantError:  true,
			errorField: "server.tls.min_version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateTLS(&tt.tls)
			checkFieldErrors(t, errs, tt.wantError, tt.errorField)
		})
	}
}

func TestValidate_IdentityConfig(t *testing.T) {
	tests := []struct {
		name       string
		identity   IdentityConfig
		wantError  bool
		errorField string
	}{
		{
			name: "valid static",
			identity: IdentityConfig{
				Mode:   "static",
				Agents: []AgentConfig{{ID: "agent-1", Token: "token-1"}},
			},
			wantError: false,
		},
		{
			name:       "empty mode",
			identity:   IdentityConfig{},
			wantError:  true,
			errorField: "identity.mode",
		},
		{
			name:       "invalid mode",
			identity:   IdentityConfig{Mode: "oauth"},
			wantError:  true,
			errorField: "identity.mode",
		},
		{
			name:       "static without agents",
			identity:   IdentityConfig{Mode: "static"},
			wantError:  true,
			errorField: "identity.agents",
		},
		{
			name: "agent without id",
			identity: IdentityConfig{
				Mode:   "static",
				Agents: []AgentConfig{{Token: "token-1"}},
			},
			wantError:  true,
			errorField: "identity.agents[0].id",
		},
		{
			name: "agent without token",
			identity: IdentityConfig{
				Mode:   "static",
				Agents: []AgentConfig{{ID: "agent-1"}},
			},
			wantError:  true,
			errorField: "identity.agents[0].token",
		},
		{
			name: "duplicate agent ids",
			identity: IdentityConfig{
				Mode: "static",
				Agents: []AgentConfig{
					{ID: "agent-1", Token: "token-1"},
					{ID: "agent-1", Token: "token-2"},
				},
			},
			wantError:  true,
			errorField: "identity.agents[1].id",
		},
		{
			name: "duplicate agent tokens",
			identity: IdentityConfig{
				Mode: "static",
				Agents: []AgentConfig{
					{ID: "agent-1", Token: "token-1"},
					{ID: "agent-2", Token: "token-1"},
				},
			},
			wantError:  true,
			errorField: "identity.agents[1].token",
		},
		{
			name: "valid jwt",
			identity: IdentityConfig{
				Mode: "jwt",
				JWT:  JWTConfig{Secret: strings.Repeat("s", 32)},
			},
			wantError: false,
		},
		{
			name:       "jwt without secret",
			identity:   IdentityConfig{Mode: "jwt"},
			wantError:  true,
			errorField: "identity.jwt.secret",
		},
		{
			name: "jwt secret too short",
			identity: IdentityConfig{
				Mode: "jwt",
				JWT:  JWTConfig{Secret: "short"},
			},
			wantError:  true,
			errorField: "identity.jwt.secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateIdentity(&tt.identity)
			checkFieldErrors(t, errs, tt.wantError, tt.errorField)
		})
	}
}

func TestValidate_PolicyConfig(t *testing.T) {
	validGit := GitPolicyConfig{
		Repository: "https://github.com/company/policies.git",
		Branch:     "main",
		Auth:       GitAuthConfig{Type: "none"},
		Poll:       GitPollConfig{Interval: 30 * time.Second, Timeout: 10 * time.Second},
	}

	tests := []struct {
		name       string
		policy     PolicyConfig
		wantError  bool
		errorField string
	}{
		{
			name:      "valid dir mode",
			policy:    PolicyConfig{Mode: "dir", Dir: "./policies"},
			wantError: false,
		},
		{
			name:       "empty mode",
			policy:     PolicyConfig{},
			wantError:  true,
			errorField: "policy.mode",
		},
		{
			name:       "invalid mode",
			policy:     PolicyConfig{Mode: "s3"},
			wantError:  true,
			errorField: "policy.mode",
		},
		{
			name:       "dir mode without directory",
			policy:     PolicyConfig{Mode: "dir"},
			wantError:  true,
			errorField: "policy.dir",
		},
		{
			name:      "valid git mode",
			policy:    PolicyConfig{Mode: "git", Git: validGit},
			wantError: false,
		},
		{
			name: "git mode without repository",
			policy: PolicyConfig{Mode: "git", Git: GitPolicyConfig{
				Branch: "main",
				Auth:   GitAuthConfig{Type: "none"},
				Poll:   GitPollConfig{Interval: 30 * time.Second, Timeout: 10 * time.Second},
			}},
			wantError:  true,
			errorField: "policy.git.repository",
		},
		{
			name: "invalid auth type",
			policy: func() PolicyConfig {
				git := validGit
				git.Auth.Type = "basic"
				return PolicyConfig{Mode: "git", Git: git}
			}(),
			wantError:  true,
			errorField: "policy.git.auth.type",
		},
		{
			name: "token auth without token",
			policy: func() PolicyConfig {
				git := validGit
				git.Auth.Type = "token"
				return PolicyConfig{Mode: "git", Git: git}
			}(),
			wantError:  true,
			errorField: "policy.git.auth.token",
		},
		{
			name: "ssh auth without key path",
			policy: func() PolicyConfig {
				git := validGit
				git.Auth.Type = "ssh"
				return PolicyConfig{Mode: "git", Git: git}
			}(),
			wantError:  true,
			errorField: "policy.git.auth.ssh_key_path",
		},
		{
			name: "poll interval not set",
			policy: func() PolicyConfig {
				git := validGit
				git.Poll.Interval = 0
				return PolicyConfig{Mode: "git", Git: git}
			}(),
			wantError:  true,
			errorField: "policy.git.poll.interval",
		},
		{
			name: "poll disabled skips poll checks",
			policy: func() PolicyConfig {
				git := validGit
				git.Poll = GitPollConfig{Disabled: true}
				return PolicyConfig{Mode: "git", Git: git}
			}(),
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validatePolicy(&tt.policy)
			checkFieldErrors(t, errs, tt.wantError, tt.errorField)
		})
	}
}

func TestValidate_Sources(t *testing.T) {
	records := map[string]map[string]any{
		"cust-1": {"name": "Avery", "segment": "retail"},
	}

	tests := []struct {
		name       string
		sources    map[string]SourceConfig
		wantError  bool
		errorField string
	}{
		{
			name:      "no sources",
			sources:   nil,
			wantError: false,
		},
		{
			name: "valid static source",
			sources: map[string]SourceConfig{
				"crm": {Type: "static", Records: records},
			},
			wantError: false,
		},
		{
			name: "missing type",
			sources: map[string]SourceConfig{
				"crm": {},
			},
			wantError:  true,
			errorField: "sources.crm.type",
		},
		{
			name: "invalid type",
			sources: map[string]SourceConfig{
				"crm": {Type: "grpc"},
			},
			wantError:  true,
			errorField: "sources.crm.type",
		},
		{
			name: "static source without records",
			sources: map[string]SourceConfig{
				"crm": {Type: "static"},
			},
			wantError:  true,
			errorField: "sources.crm.records",
		},
		{
			name: "static source with records overlaying fixture file",
			sources: map[string]SourceConfig{
				"crm": {Type: "static", Records: records, FixtureFile: "fixtures.yaml"},
			},
			wantError: false,
		},
		{
			name: "valid http source",
			sources: map[string]SourceConfig{
				"crm": {Type: "http", URL: "https://crm.internal:8443", Timeout: 10 * time.Second},
			},
			wantError: false,
		},
		{
			name: "http source without url",
			sources: map[string]SourceConfig{
				"crm": {Type: "http"},
			},
			wantError:  true,
			errorField: "sources.crm.url",
		},
		{
			name: "http source with unsupported scheme",
			sources: map[string]SourceConfig{
				"crm": {Type: "http", URL: "ftp://crm.internal"},
			},
			wantError:  true,
			errorField: "sources.crm.url",
		},
		{
			name: "http source with excessive retries",
			sources: map[string]SourceConfig{
				"crm": {Type: "http", URL: "https://crm.internal", MaxRetries: 11},
			},
			wantError:  true,
			errorField: "sources.crm.max_retries",
		},
		{
			name: "valid postgres source",
			sources: map[string]SourceConfig{
				"ledger": {Type: "postgres", DSN: "postgres://db/ledger", Query: "SELECT 1"},
			},
			wantError: false,
		},
		{
			name: "postgres source without dsn",
			sources: map[string]SourceConfig{
				"ledger": {Type: "postgres", Query: "SELECT 1"},
			},
			wantError:  true,
			errorField: "sources.ledger.dsn",
		},
		{
			name: "mysql source without query",
			sources: map[string]SourceConfig{
				"risk": {Type: "mysql", DSN: "user:pw@tcp(db:3306)/risk"},
			},
			wantError:  true,
			errorField: "sources.risk.query",
		},
		{
			name: "idle conns exceed open conns",
			sources: map[string]SourceConfig{
				"ledger": {
					Type: "postgres", DSN: "postgres://db/ledger", Query: "SELECT 1",
					MaxOpenConns: 4, MaxIdleConns: 8,
				},
			},
			wantError:  true,
			errorField: "sources.ledger.max_idle_conns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateSources(tt.sources)
			checkFieldErrors(t, errs, tt.wantError, tt.errorField)
		})
	}
}

func TestValidate_FanoutConfig(t *testing.T) {
	tests := []struct {
		name       string
		fanout     FanoutConfig
		wantError  bool
		errorField string
	}{
		{
			name:      "valid fanout config",
			fanout:    FanoutConfig{SourceTimeout: 5 * time.Second, TotalTimeout: 10 * time.Second, MaxConcurrent: 8},
			wantError: false,
		},
		{
			name:       "zero source timeout",
			fanout:     FanoutConfig{TotalTimeout: 10 * time.Second},
			wantError:  true,
			errorField: "fanout.source_timeout",
		},
		{
			name:       "zero total timeout",
			fanout:     FanoutConfig{SourceTimeout: 5 * time.Second},
			wantError:  true,
			errorField: "fanout.total_timeout",
		},
		{
			name:       "total shorter than source",
			fanout:     FanoutConfig{SourceTimeout: 10 * time.Second, TotalTimeout: 5 * time.Second},
			wantError:  true,
			errorField: "fanout.total_timeout",
		},
		{
			name:       "negative concurrency",
			fanout:     FanoutConfig{SourceTimeout: 5 * time.Second, TotalTimeout: 10 * time.Second, MaxConcurrent: -1},
			wantError:  true,
			errorField: "fanout.max_concurrent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateFanout(&tt.fanout)
			checkFieldErrors(t, errs, tt.wantError, tt.errorField)
		})
	}
}

func TestValidate_CacheConfig(t *testing.T) {
	tests := []struct {
		name       string
		cache      CacheConfig
		wantError  bool
		errorField string
	}{
		{
			name:      "valid memory cache",
			cache:     CacheConfig{Backend: "memory", Memory: MemoryCacheConfig{MaxEntries: 1000}},
			wantError: false,
		},
		{
			name:       "invalid backend",
			cache:      CacheConfig{Backend: "memcached"},
			wantError:  true,
			errorField: "cache.backend",
		},
		{
			name:       "memory cache without capacity",
			cache:      CacheConfig{Backend: "memory"},
			wantError:  true,
			errorField: "cache.memory.max_entries",
		},
		{
			name: "valid redis cache",
			cache: CacheConfig{
				Backend: "redis",
				Redis:   RedisCacheConfig{URL: "redis://localhost:6379", DialTimeout: 5 * time.Second},
			},
			wantError: false,
		},
		{
			name:       "redis cache without url",
			cache:      CacheConfig{Backend: "redis", Redis: RedisCacheConfig{DialTimeout: 5 * time.Second}},
			wantError:  true,
			errorField: "cache.redis.url",
		},
		{
			name: "redis cache with non-redis url",
			cache: CacheConfig{
				Backend: "redis",
				Redis:   RedisCacheConfig{URL: "http://localhost:6379", DialTimeout: 5 * time.Second},
			},
			wantError:  true,
			errorField: "cache.redis.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateCache(&tt.cache)
			checkFieldErrors(t, errs, tt.wantError, tt.errorField)
		})
	}
}

func validAuditConfig() AuditConfig {
	return AuditConfig{
		Backend:  "sqlite",
		SQLite:   AuditSQLiteConfig{Path: "audit.db", BusyTimeout: 5 * time.Second},
		Memory:   AuditMemoryConfig{MaxRecords: 100000},
		Recorder: AuditRecorderConfig{WriteTimeout: 5 * time.Second},
		Query:    AuditQueryConfig{DefaultLimit: 100, MaxLimit: 1000, Timeout: 30 * time.Second},
	}
}

func TestValidate_AuditConfig(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*AuditConfig)
		wantError  bool
		errorField string
	}{
		{
			name:      "valid audit config",
			mutate:    func(cfg *AuditConfig) {},
			wantError: false,
		},
		{
			name:       "invalid backend",
			mutate:     func(cfg *AuditConfig) { cfg.Backend = "postgres" },
			wantError:  true,
			errorField: "audit.backend",
		},
		{
			name:       "sqlite backend without path",
			mutate:     func(cfg *AuditConfig) { cfg.SQLite.Path = "" },
			wantError:  true,
			errorField: "audit.sqlite.path",
		},
		{
			name: "memory backend without capacity",
			mutate: func(cfg *AuditConfig) {
				cfg.Backend = "memory"
				cfg.Memory.MaxRecords = 0
			},
			wantError:  true,
			errorField: "audit.memory.max_records",
		},
		{
			name:       "zero write timeout",
			mutate:     func(cfg *AuditConfig) { cfg.Recorder.WriteTimeout = 0 },
			wantError:  true,
			errorField: "audit.recorder.write_timeout",
		},
		{
			name:       "zero default query limit",
			mutate:     func(cfg *AuditConfig) { cfg.Query.DefaultLimit = 0 },
			wantError:  true,
			errorField: "audit.query.default_limit",
		},
		{
			name:       "max limit below default limit",
			mutate:     func(cfg *AuditConfig) { cfg.Query.MaxLimit = 10 },
			wantError:  true,
			errorField: "audit.query.max_limit",
		},
		{
			name: "valid retention",
			mutate: func(cfg *AuditConfig) {
				cfg.Retention = RetentionConfig{
					Enabled:    true,
					MaxAgeDays: 90,
					Schedule:   "0 3 * * *",
				}
			},
			wantError: false,
		},
		{
			name: "retention with invalid cron expression",
			mutate: func(cfg *AuditConfig) {
				cfg.Retention = RetentionConfig{
					Enabled:    true,
					MaxAgeDays: 90,
					Schedule:   "not a cron spec",
				}
			},
			wantError:  true,
			errorField: "audit.retention.schedule",
		},
		{
			name: "retention without any limit",
			mutate: func(cfg *AuditConfig) {
				cfg.Retention = RetentionConfig{
					Enabled:  true,
					Schedule: "0 3 * * *",
				}
			},
			wantError:  true,
			errorField: "audit.retention",
		},
		{
			name: "archive without directory",
			mutate: func(cfg *AuditConfig) {
				cfg.Retention = RetentionConfig{
					Enabled:    true,
					MaxAgeDays: 90,
					Schedule:   "0 3 * * *",
					Archive:    true,
				}
			},
			wantError:  true,
			errorField: "audit.retention.archive_dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAuditConfig()
			tt.mutate(&cfg)
			errs := validateAudit(&cfg)
			checkFieldErrors(t, errs, tt.wantError, tt.errorField)
		})
	}
}

func validLimitsConfig() LimitsConfig {
	return LimitsConfig{
		Enabled:         true,
		DefaultQuota:    QuotaConfig{RequestsPerMinute: 60, RequestsPerHour: 600},
		IdleExpiry:      24 * time.Hour,
		CleanupInterval: time.Hour,
		Storage:         LimitsStorageConfig{Backend: "memory"},
	}
}

func TestValidate_LimitsConfig(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*LimitsConfig)
		wantError  bool
		errorField string
	}{
		{
			name:      "valid limits config",
			mutate:    func(cfg *LimitsConfig) {},
			wantError: false,
		},
		{
			name:       "negative per-minute quota",
			mutate:     func(cfg *LimitsConfig) { cfg.DefaultQuota.RequestsPerMinute = -1 },
			wantError:  true,
			errorField: "limits.default_quota.requests_per_minute",
		},
		{
			name:       "negative per-hour quota",
			mutate:     func(cfg *LimitsConfig) { cfg.DefaultQuota.RequestsPerHour = -1 },
			wantError:  true,
			errorField: "limits.default_quota.requests_per_hour",
		},
		{
			name: "per-agent override with empty id",
			mutate: func(cfg *LimitsConfig) {
				cfg.PerAgent = map[string]QuotaConfig{"": {RequestsPerMinute: 10}}
			},
			wantError:  true,
			errorField: "limits.per_agent",
		},
		{
			name: "per-agent override with negative quota",
			mutate: func(cfg *LimitsConfig) {
				cfg.PerAgent = map[string]QuotaConfig{"agent-1": {RequestsPerMinute: -5}}
			},
			wantError:  true,
			errorField: "limits.per_agent.agent-1.requests_per_minute",
		},
		{
			name:       "zero idle expiry",
			mutate:     func(cfg *LimitsConfig) { cfg.IdleExpiry = 0 },
			wantError:  true,
			errorField: "limits.idle_expiry",
		},
		{
			name:       "negative cleanup interval",
			mutate:     func(cfg *LimitsConfig) { cfg.CleanupInterval = -time.Minute },
			wantError:  true,
			errorField: "limits.cleanup_interval",
		},
		{
			name:       "invalid storage backend",
			mutate:     func(cfg *LimitsConfig) { cfg.Storage.Backend = "redis" },
			wantError:  true,
			errorField: "limits.storage.backend",
		},
		{
			name: "sqlite storage without path",
			mutate: func(cfg *LimitsConfig) {
				cfg.Storage.Backend = "sqlite"
				cfg.Storage.SQLite = LimitsSQLiteConfig{BusyTimeout: 5 * time.Second}
			},
			wantError:  true,
			errorField: "limits.storage.sqlite.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validLimitsConfig()
			tt.mutate(&cfg)
			errs := validateLimits(&cfg)
			checkFieldErrors(t, errs, tt.wantError, tt.errorField)
		})
	}
}

func validTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Path: "/metrics", Namespace: "ganymede"},
		Tracing: TracingConfig{Sampler: "ratio", SampleRatio: 0.1, Timeout: 10 * time.Second},
		Health: HealthConfig{
			LivenessPath:  "/healthz",
			ReadinessPath: "/readyz",
			CheckTimeout:  5 * time.Second,
		},
	}
}

func TestValidate_TelemetryConfig(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*TelemetryConfig)
		wantError  bool
		errorField string
	}{
		{
			name:      "valid telemetry config",
			mutate:    func(cfg *TelemetryConfig) {},
			wantError: false,
		},
		{
			name:       "invalid logging level",
			mutate:     func(cfg *TelemetryConfig) { cfg.Logging.Level = "trace" },
			wantError:  true,
			errorField: "telemetry.logging.level",
		},
		{
			name:       "invalid logging format",
			mutate:     func(cfg *TelemetryConfig) { cfg.Logging.Format = "logfmt" },
			wantError:  true,
			errorField: "telemetry.logging.format",
		},
		{
			name: "redact pattern without name",
			mutate: func(cfg *TelemetryConfig) {
				cfg.Logging.RedactPatterns = []RedactPattern{{Pattern: "secret-\\w+"}}
			},
			wantError:  true,
			errorField: "telemetry.logging.redact_patterns[0].name",
		},
		{
			name: "redact pattern with invalid regexp",
			mutate: func(cfg *TelemetryConfig) {
				cfg.Logging.RedactPatterns = []RedactPattern{{Name: "broken", Pattern: "("}}
			},
			wantError:  true,
			errorField: "telemetry.logging.redact_patterns[0].pattern",
		},
		{
			name:       "metrics path without leading slash",
			mutate:     func(cfg *TelemetryConfig) { cfg.Metrics.Path = "metrics" },
			wantError:  true,
			errorField: "telemetry.metrics.path",
		},
		{
			name: "non-increasing histogram buckets",
			mutate: func(cfg *TelemetryConfig) {
				cfg.Metrics.RequestDurationBuckets = []float64{0.1, 0.1, 0.5}
			},
			wantError:  true,
			errorField: "telemetry.metrics.request_duration_buckets",
		},
		{
			name: "tracing enabled without endpoint",
			mutate: func(cfg *TelemetryConfig) {
				cfg.Tracing.Enabled = true
			},
			wantError:  true,
			errorField: "telemetry.tracing.endpoint",
		},
		{
			name: "invalid sampler",
			mutate: func(cfg *TelemetryConfig) {
				cfg.Tracing.Enabled = true
				cfg.Tracing.Endpoint = "localhost:4317"
				cfg.Tracing.Sampler = "parent"
			},
			wantError:  true,
			errorField: "telemetry.tracing.sampler",
		},
		{
			name: "sample ratio out of range",
			mutate: func(cfg *TelemetryConfig) {
				cfg.Tracing.Enabled = true
				cfg.Tracing.Endpoint = "localhost:4317"
				cfg.Tracing.SampleRatio = 1.5
			},
			wantError:  true,
			errorField: "telemetry.tracing.sample_ratio",
		},
		{
			name:       "liveness path without leading slash",
			mutate:     func(cfg *TelemetryConfig) { cfg.Health.LivenessPath = "healthz" },
			wantError:  true,
			errorField: "telemetry.health.liveness_path",
		},
		{
			name:       "zero health check timeout",
			mutate:     func(cfg *TelemetryConfig) { cfg.Health.CheckTimeout = 0 },
			wantError:  true,
			errorField: "telemetry.health.check_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTelemetryConfig()
			tt.mutate(&cfg)
			errs := validateTelemetry(&cfg)
			checkFieldErrors(t, errs, tt.wantError, tt.errorField)
		})
	}
}

func TestValidate_FanoutBudgetExceedsRequestTimeout(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Server.RequestTimeout = 5 * time.Second
	cfg.Fanout.TotalTimeout = 20 * time.Second

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error when fan-out budget exceeds request timeout")
	}

	validationErr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	found := false
	for _, fe := range validationErr.Errors {
		if fe.Field == "fanout.total_timeout" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected error for fanout.total_timeout, got: %v", validationErr.Errors)
	}
}
