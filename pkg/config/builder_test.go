package config

// ConfigBuilder provides a fluent API for building Config instances in
// tests. It starts from a defaulted configuration with one enabled agent
// and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder whose result passes
// validation without further changes.
func NewTestConfig() *ConfigBuilder {
	cfg := Config{
		Identity: IdentityConfig{
			Mode: "static",
			Agents: []AgentConfig{
				{
					ID:      "agent-1",
					Token:   "token-agent-1",
					Scopes:  []string{"customer:read"},
					Intents: []string{"loan_assessment"},
				},
			},
		},
	}
	ApplyDefaults(&cfg)
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithListenAddress sets the server listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Server.ListenAddress = addr
	return b
}

// WithJWT switches identity verification to JWT mode with the given secret.
func (b *ConfigBuilder) WithJWT(secret string) *ConfigBuilder {
	b.cfg.Identity.Mode = "jwt"
	b.cfg.Identity.JWT.Secret = secret
	return b
}

// WithSource adds or replaces a named source, applying type defaults.
func (b *ConfigBuilder) WithSource(name string, src SourceConfig) *ConfigBuilder {
	if b.cfg.Sources == nil {
		b.cfg.Sources = make(map[string]SourceConfig)
	}
	applySourceDefaults(&src)
	b.cfg.Sources[name] = src
	return b
}

// WithPolicyDir sets directory-based policy loading.
func (b *ConfigBuilder) WithPolicyDir(dir string) *ConfigBuilder {
	b.cfg.Policy.Mode = "dir"
	b.cfg.Policy.Dir = dir
	return b
}

// WithPolicyGitRepo switches policy loading to the given git repository.
func (b *ConfigBuilder) WithPolicyGitRepo(repo string) *ConfigBuilder {
	b.cfg.Policy.Mode = "git"
	b.cfg.Policy.Git.Repository = repo
	return b
}

// WithCacheBackend selects the cache backend.
func (b *ConfigBuilder) WithCacheBackend(backend string) *ConfigBuilder {
	b.cfg.Cache.Backend = backend
	return b
}

// WithAuditBackend selects the audit storage backend.
func (b *ConfigBuilder) WithAuditBackend(backend string) *ConfigBuilder {
	b.cfg.Audit.Backend = backend
	return b
}

// WithQuota enables request limits with the given default per-minute quota.
func (b *ConfigBuilder) WithQuota(perMinute int64) *ConfigBuilder {
	b.cfg.Limits.Enabled = true
	b.cfg.Limits.DefaultQuota.RequestsPerMinute = perMinute
	return b
}

// WithTracing enables tracing against the given collector endpoint.
func (b *ConfigBuilder) WithTracing(endpoint string) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Enabled = true
	b.cfg.Telemetry.Tracing.Endpoint = endpoint
	return b
}

// WithTLS enables TLS with the given certificate pair.
func (b *ConfigBuilder) WithTLS(certFile, keyFile string) *ConfigBuilder {
	b.cfg.Server.TLS.Enabled = true
	b.cfg.Server.TLS.CertFile = certFile
	b.cfg.Server.TLS.KeyFile = keyFile
	return b
}

// MinimalConfig returns a minimal valid configuration for testing.
// This is useful for tests that don't care about most configuration values.
func MinimalConfig() *Config {
	return NewTestConfig().Build()
}
