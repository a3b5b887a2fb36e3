package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateIdentity(&cfg.Identity)...)
	errs = append(errs, validatePolicy(&cfg.Policy)...)
	errs = append(errs, validateSources(cfg.Sources)...)
	errs = append(errs, validateFanout(&cfg.Fanout)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	// The request budget must cover the fan-out stage or every
	// request would time out at the server before its sources do.
	if cfg.Server.RequestTimeout > 0 && cfg.Fanout.TotalTimeout > cfg.Server.RequestTimeout {
		errs = append(errs, FieldError{
			Field:   "fanout.total_timeout",
			Message: "must not exceed server.request_timeout",
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates HTTP server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address: %v", err),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}
	if cfg.RequestTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.request_timeout",
			Message: "request timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	if cfg.CORS.Enabled && len(cfg.CORS.AllowedOrigins) == 0 {
		errs = append(errs, FieldError{
			Field:   "server.cors.allowed_origins",
			Message: "at least one origin is required when CORS is enabled",
		})
	}
	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "server.cors.max_age",
			Message: "max age must be non-negative",
		})
	}

	errs = append(errs, validateTLS(&cfg.TLS)...)

	return errs
}

// validateTLS validates TLS configuration.
func validateTLS(cfg *TLSConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled {
		if cfg.CertFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls.cert_file",
				Message: "certificate file is required when TLS is enabled",
			})
		}
		if cfg.KeyFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls.key_file",
				Message: "key file is required when TLS is enabled",
			})
		}
	}

	if cfg.MinVersion != "" && cfg.MinVersion != "1.2" && cfg.MinVersion != "1.3" {
		errs = append(errs, FieldError{
			Field:   "server.tls.min_version",
			Message: fmt.Sprintf("invalid TLS version %q: must be '1.2' or '1.3'", cfg.MinVersion),
		})
	}

	return errs
}

// validateIdentity validates caller verification configuration.
func validateIdentity(cfg *IdentityConfig) []FieldError {
	var errs []FieldError

	validModes := map[string]bool{"static": true, "jwt": true}
	if cfg.Mode == "" {
		errs = append(errs, FieldError{
			Field:   "identity.mode",
			Message: "mode is required",
		})
	} else if !validModes[cfg.Mode] {
		errs = append(errs, FieldError{
			Field:   "identity.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'static' or 'jwt'", cfg.Mode),
		})
	}

	if cfg.Mode == "static" {
		if len(cfg.Agents) == 0 {
			errs = append(errs, FieldError{
				Field:   "identity.agents",
				Message: "at least one agent is required when mode is 'static'",
			})
		}

		seenIDs := make(map[string]bool)
		seenTokens := make(map[string]bool)
		for i, agent := range cfg.Agents {
			prefix := fmt.Sprintf("identity.agents[%d]", i)

			if agent.ID == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".id",
					Message: "agent id is required",
				})
			} else if seenIDs[agent.ID] {
				errs = append(errs, FieldError{
					Field:   prefix + ".id",
					Message: fmt.Sprintf("duplicate agent id %q", agent.ID),
				})
			}
			seenIDs[agent.ID] = true

			if agent.Token == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".token",
					Message: "agent token is required",
				})
			} else if seenTokens[agent.Token] {
				errs = append(errs, FieldError{
					Field:   prefix + ".token",
					Message: "duplicate agent token",
				})
			}
			seenTokens[agent.Token] = true
		}
	}

	if cfg.Mode == "jwt" {
		if cfg.JWT.Secret == "" {
			errs = append(errs, FieldError{
				Field:   "identity.jwt.secret",
				Message: "secret is required when mode is 'jwt'",
			})
		} else if len(cfg.JWT.Secret) < 32 {
			errs = append(errs, FieldError{
				Field:   "identity.jwt.secret",
				Message: "secret must be at least 32 characters",
			})
		}
	}

	return errs
}

// validatePolicy validates policy loading configuration.
func validatePolicy(cfg *PolicyConfig) []FieldError {
	var errs []FieldError

	validModes := map[string]bool{"dir": true, "git": true}
	if cfg.Mode == "" {
		errs = append(errs, FieldError{
			Field:   "policy.mode",
			Message: "mode is required",
		})
	} else if !validModes[cfg.Mode] {
		errs = append(errs, FieldError{
			Field:   "policy.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'dir' or 'git'", cfg.Mode),
		})
	}

	if cfg.Mode == "dir" && cfg.Dir == "" {
		errs = append(errs, FieldError{
			Field:   "policy.dir",
			Message: "directory is required when mode is 'dir'",
		})
	}

	if cfg.Mode == "git" {
		if cfg.Git.Repository == "" {
			errs = append(errs, FieldError{
				Field:   "policy.git.repository",
				Message: "repository is required when mode is 'git'",
			})
		}
		if cfg.Git.Branch == "" {
			errs = append(errs, FieldError{
				Field:   "policy.git.branch",
				Message: "branch is required when mode is 'git'",
			})
		}
		if cfg.Git.Depth < 0 {
			errs = append(errs, FieldError{
				Field:   "policy.git.depth",
				Message: "depth must be non-negative",
			})
		}

		validAuth := map[string]bool{"none": true, "token": true, "ssh": true}
		if !validAuth[cfg.Git.Auth.Type] {
			errs = append(errs, FieldError{
				Field:   "policy.git.auth.type",
				Message: fmt.Sprintf("invalid auth type %q: must be 'none', 'token', or 'ssh'", cfg.Git.Auth.Type),
			})
		}
		if cfg.Git.Auth.Type == "token" && cfg.Git.Auth.Token == "" {
			errs = append(errs, FieldError{
				Field:   "policy.git.auth.token",
				Message: "token is required when auth type is 'token'",
			})
		}
		if cfg.Git.Auth.Type == "ssh" && cfg.Git.Auth.SSHKeyPath == "" {
			errs = append(errs, FieldError{
				Field:   "policy.git.auth.ssh_key_path",
				Message: "ssh key path is required when auth type is 'ssh'",
			})
		}

		if !cfg.Git.Poll.Disabled {
			if cfg.Git.Poll.Interval <= 0 {
				errs = append(errs, FieldError{
					Field:   "policy.git.poll.interval",
					Message: "interval must be positive",
				})
			}
			if cfg.Git.Poll.Timeout <= 0 {
				errs = append(errs, FieldError{
					Field:   "policy.git.poll.timeout",
					Message: "timeout must be positive",
				})
			}
		}
	}

	return errs
}

// validateSources validates upstream source configurations. An empty
// source map is valid; policies that name a missing source fail at
// load time instead.
func validateSources(sources map[string]SourceConfig) []FieldError {
	var errs []FieldError

	validTypes := map[string]bool{"static": true, "http": true, "postgres": true, "mysql": true}

	for name, src := range sources {
		if name == "" {
			errs = append(errs, FieldError{
				Field:   "sources",
				Message: "source name must not be empty",
			})
			continue
		}
		prefix := fmt.Sprintf("sources.%s", name)

		if src.Type == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: "type is required",
			})
			continue
		}
		if !validTypes[src.Type] {
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("invalid type %q: must be 'static', 'http', 'postgres', or 'mysql'", src.Type),
			})
			continue
		}

		switch src.Type {
		case "static":
			if len(src.Records) == 0 && src.FixtureFile == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".records",
					Message: "static source requires records or fixture_file",
				})
			}

		case "http":
			if src.URL == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".url",
					Message: "url is required for http sources",
				})
			} else if u, err := url.Parse(src.URL); err != nil {
				errs = append(errs, FieldError{
					Field:   prefix + ".url",
					Message: fmt.Sprintf("invalid URL format: %v", err),
				})
			} else if u.Scheme != "http" && u.Scheme != "https" {
				errs = append(errs, FieldError{
					Field:   prefix + ".url",
					Message: fmt.Sprintf("invalid URL scheme %q: must be 'http' or 'https'", u.Scheme),
				})
			}
			if src.Timeout < 0 {
				errs = append(errs, FieldError{
					Field:   prefix + ".timeout",
					Message: "timeout must be positive",
				})
			}
			if src.MaxRetries < 0 {
				errs = append(errs, FieldError{
					Field:   prefix + ".max_retries",
					Message: "max retries must be non-negative",
				})
			}
			if src.MaxRetries > 10 {
				errs = append(errs, FieldError{
					Field:   prefix + ".max_retries",
					Message: "max retries exceeds reasonable limit (10)",
				})
			}
			if src.MaxResponseBytes < 0 {
				errs = append(errs, FieldError{
					Field:   prefix + ".max_response_bytes",
					Message: "max response bytes must be non-negative",
				})
			}

		case "postgres", "mysql":
			if src.DSN == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".dsn",
					Message: fmt.Sprintf("dsn is required for %s sources", src.Type),
				})
			}
			if src.Query == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".query",
					Message: fmt.Sprintf("query is required for %s sources", src.Type),
				})
			}
			if src.Timeout < 0 {
				errs = append(errs, FieldError{
					Field:   prefix + ".timeout",
					Message: "timeout must be positive",
				})
			}
			if src.MaxOpenConns < 0 {
				errs = append(errs, FieldError{
					Field:   prefix + ".max_open_conns",
					Message: "max open conns must be non-negative",
				})
			}
			if src.MaxIdleConns < 0 {
				errs = append(errs, FieldError{
					Field:   prefix + ".max_idle_conns",
					Message: "max idle conns must be non-negative",
				})
			}
			if src.MaxOpenConns > 0 && src.MaxIdleConns > src.MaxOpenConns {
				errs = append(errs, FieldError{
					Field:   prefix + ".max_idle_conns",
					Message: "max idle conns must not exceed max open conns",
				})
			}
		}
	}

	return errs
}

// validateFanout validates fan-out stage configuration.
func validateFanout(cfg *FanoutConfig) []FieldError {
	var errs []FieldError

	if cfg.SourceTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "fanout.source_timeout",
			Message: "source timeout must be positive",
		})
	}
	if cfg.TotalTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "fanout.total_timeout",
			Message: "total timeout must be positive",
		})
	}
	if cfg.SourceTimeout > 0 && cfg.TotalTimeout > 0 && cfg.TotalTimeout < cfg.SourceTimeout {
		errs = append(errs, FieldError{
			Field:   "fanout.total_timeout",
			Message: "total timeout must be at least source timeout",
		})
	}
	if cfg.MaxConcurrent < 0 {
		errs = append(errs, FieldError{
			Field:   "fanout.max_concurrent",
			Message: "max concurrent must be non-negative",
		})
	}

	return errs
}

// validateCache validates cache configuration.
func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"memory": true, "redis": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "cache.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'redis'", cfg.Backend),
		})
	}

	if cfg.Backend == "memory" && cfg.Memory.MaxEntries <= 0 {
		errs = append(errs, FieldError{
			Field:   "cache.memory.max_entries",
			Message: "max entries must be positive",
		})
	}

	if cfg.Backend == "redis" {
		if cfg.Redis.URL == "" {
			errs = append(errs, FieldError{
				Field:   "cache.redis.url",
				Message: "url is required for the redis backend",
			})
		} else if !strings.HasPrefix(cfg.Redis.URL, "redis://") && !strings.HasPrefix(cfg.Redis.URL, "rediss://") {
			errs = append(errs, FieldError{
				Field:   "cache.redis.url",
				Message: "url must start with 'redis://' or 'rediss://'",
			})
		}
		if cfg.Redis.DialTimeout <= 0 {
			errs = append(errs, FieldError{
				Field:   "cache.redis.dial_timeout",
				Message: "dial timeout must be positive",
			})
		}
	}

	return errs
}

// validateAudit validates audit trail configuration.
func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.Backend == "sqlite" {
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if cfg.SQLite.BusyTimeout <= 0 {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.busy_timeout",
				Message: "busy timeout must be positive",
			})
		}
	}

	if cfg.Backend == "memory" && cfg.Memory.MaxRecords <= 0 {
		errs = append(errs, FieldError{
			Field:   "audit.memory.max_records",
			Message: "max records must be positive",
		})
	}

	if cfg.Recorder.WriteTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "audit.recorder.write_timeout",
			Message: "write timeout must be positive",
		})
	}

	if cfg.Query.DefaultLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "audit.query.default_limit",
			Message: "default limit must be positive",
		})
	}
	if cfg.Query.MaxLimit < cfg.Query.DefaultLimit {
		errs = append(errs, FieldError{
			Field:   "audit.query.max_limit",
			Message: "max limit must be at least default limit",
		})
	}
	if cfg.Query.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "audit.query.timeout",
			Message: "timeout must be positive",
		})
	}

	errs = append(errs, validateRetention(&cfg.Retention)...)

	return errs
}

// validateRetention validates audit retention configuration.
func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	if cfg.MaxAgeDays < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention.max_age_days",
			Message: "max age days must be non-negative",
		})
	}
	if cfg.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	if cfg.MaxAgeDays == 0 && cfg.MaxRecords == 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention",
			Message: "retention is enabled but neither max_age_days nor max_records is set",
		})
	}

	if cfg.Schedule == "" {
		errs = append(errs, FieldError{
			Field:   "audit.retention.schedule",
			Message: "schedule is required when retention is enabled",
		})
	} else if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "audit.retention.schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}

	if cfg.Archive && cfg.ArchiveDir == "" {
		errs = append(errs, FieldError{
			Field:   "audit.retention.archive_dir",
			Message: "archive dir is required when archiving is enabled",
		})
	}

	return errs
}

// validateLimits validates request quota configuration.
func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	if cfg.DefaultQuota.RequestsPerMinute < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.default_quota.requests_per_minute",
			Message: "requests per minute must be non-negative",
		})
	}
	if cfg.DefaultQuota.RequestsPerHour < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.default_quota.requests_per_hour",
			Message: "requests per hour must be non-negative",
		})
	}

	for agentID, quota := range cfg.PerAgent {
		if agentID == "" {
			errs = append(errs, FieldError{
				Field:   "limits.per_agent",
				Message: "agent id must not be empty",
			})
			continue
		}
		prefix := fmt.Sprintf("limits.per_agent.%s", agentID)

		if quota.RequestsPerMinute < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".requests_per_minute",
				Message: "requests per minute must be non-negative",
			})
		}
		if quota.RequestsPerHour < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".requests_per_hour",
				Message: "requests per hour must be non-negative",
			})
		}
	}

	if cfg.IdleExpiry <= 0 {
		errs = append(errs, FieldError{
			Field:   "limits.idle_expiry",
			Message: "idle expiry must be positive",
		})
	}
	if cfg.CleanupInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.cleanup_interval",
			Message: "cleanup interval must be non-negative",
		})
	}

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[cfg.Storage.Backend] {
		errs = append(errs, FieldError{
			Field:   "limits.storage.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Storage.Backend),
		})
	}
	if cfg.Storage.Backend == "sqlite" {
		if cfg.Storage.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "limits.storage.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if cfg.Storage.SQLite.BusyTimeout <= 0 {
			errs = append(errs, FieldError{
				Field:   "limits.storage.sqlite.busy_timeout",
				Message: "busy timeout must be positive",
			})
		}
		if cfg.Storage.SQLite.CheckpointInterval < 0 {
			errs = append(errs, FieldError{
				Field:   "limits.storage.sqlite.checkpoint_interval",
				Message: "checkpoint interval must be non-negative",
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	for i, pattern := range cfg.Logging.RedactPatterns {
		prefix := fmt.Sprintf("telemetry.logging.redact_patterns[%d]", i)
		if pattern.Name == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".name",
				Message: "pattern name is required",
			})
		}
		if pattern.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".pattern",
				Message: "pattern is required",
			})
		} else if _, err := regexp.Compile(pattern.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   prefix + ".pattern",
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "path must start with '/'",
		})
	}
	for i := 1; i < len(cfg.Metrics.RequestDurationBuckets); i++ {
		if cfg.Metrics.RequestDurationBuckets[i] <= cfg.Metrics.RequestDurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.request_duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
		validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
		if !validSamplers[cfg.Tracing.Sampler] {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.Sampler == "ratio" && (cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1) {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: "sample ratio must be between 0.0 and 1.0",
			})
		}
		if cfg.Tracing.Timeout <= 0 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.timeout",
				Message: "timeout must be positive",
			})
		}
	}

	if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.liveness_path",
			Message: "path must start with '/'",
		})
	}
	if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.readiness_path",
			Message: "path must start with '/'",
		})
	}
	if cfg.Health.CheckTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout must be positive",
		})
	}

	return errs
}
