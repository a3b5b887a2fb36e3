package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envPlaceholder matches ${NAME} references in the raw configuration
// file. Bare dollars and positional markers like $1 in SQL queries are
// deliberately not matched.
var envPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandPlaceholders replaces ${NAME} references with the value of the
// NAME environment variable. Unset variables expand to the empty string
// so that required-field validation catches the missing value instead
// of a literal placeholder leaking into runtime configuration.
func expandPlaceholders(data []byte) []byte {
	return envPlaceholder.ReplaceAllFunc(data, func(m []byte) []byte {
		name := string(envPlaceholder.FindSubmatch(m)[1])
		return []byte(os.Getenv(name))
	})
}

// LoadConfig loads configuration from a YAML file at the specified path.
// ${NAME} placeholders in the file are expanded from the environment,
// then default values are applied and the result is validated. Use
// LoadConfigWithEnvOverrides to additionally honor GANYMEDE_* override
// variables.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	data = expandPlaceholders(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow the
// naming convention GANYMEDE_SECTION_FIELD (e.g., GANYMEDE_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	// First load from file (this already applies defaults)
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format GANYMEDE_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("GANYMEDE_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("GANYMEDE_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_MAX_HEADER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.MaxHeaderBytes = i
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_TLS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Server.TLS.Enabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_SERVER_TLS_CERT_FILE"); val != "" {
		cfg.Server.TLS.CertFile = val
	}
	if val := os.Getenv("GANYMEDE_SERVER_TLS_KEY_FILE"); val != "" {
		cfg.Server.TLS.KeyFile = val
	}

	// Identity overrides
	if val := os.Getenv("GANYMEDE_IDENTITY_MODE"); val != "" {
		cfg.Identity.Mode = val
	}
	if val := os.Getenv("GANYMEDE_IDENTITY_JWT_SECRET"); val != "" {
		cfg.Identity.JWT.Secret = val
	}
	if val := os.Getenv("GANYMEDE_IDENTITY_JWT_ISSUER"); val != "" {
		cfg.Identity.JWT.Issuer = val
	}
	if val := os.Getenv("GANYMEDE_IDENTITY_JWT_AUDIENCE"); val != "" {
		cfg.Identity.JWT.Audience = val
	}

	// Policy overrides
	if val := os.Getenv("GANYMEDE_POLICY_MODE"); val != "" {
		cfg.Policy.Mode = val
	}
	if val := os.Getenv("GANYMEDE_POLICY_DIR"); val != "" {
		cfg.Policy.Dir = val
	}
	if val := os.Getenv("GANYMEDE_POLICY_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policy.Watch = b
		}
	}
	if val := os.Getenv("GANYMEDE_POLICY_GIT_REPOSITORY"); val != "" {
		cfg.Policy.Git.Repository = val
	}
	if val := os.Getenv("GANYMEDE_POLICY_GIT_BRANCH"); val != "" {
		cfg.Policy.Git.Branch = val
	}
	if val := os.Getenv("GANYMEDE_POLICY_GIT_PATH"); val != "" {
		cfg.Policy.Git.Path = val
	}
	if val := os.Getenv("GANYMEDE_POLICY_GIT_AUTH_TYPE"); val != "" {
		cfg.Policy.Git.Auth.Type = val
	}
	if val := os.Getenv("GANYMEDE_POLICY_GIT_AUTH_TOKEN"); val != "" {
		cfg.Policy.Git.Auth.Token = val
	}
	if val := os.Getenv("GANYMEDE_POLICY_GIT_AUTH_SSH_KEY_PATH"); val != "" {
		cfg.Policy.Git.Auth.SSHKeyPath = val
	}
	if val := os.Getenv("GANYMEDE_POLICY_GIT_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Policy.Git.Poll.Interval = d
		}
	}

	// Source overrides for every configured source
	for name := range cfg.Sources {
		applySourceEnvOverrides(cfg, name)
	}

	// Fan-out overrides
	if val := os.Getenv("GANYMEDE_FANOUT_SOURCE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Fanout.SourceTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_FANOUT_TOTAL_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Fanout.TotalTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_FANOUT_MAX_CONCURRENT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Fanout.MaxConcurrent = i
		}
	}

	// Cache overrides
	if val := os.Getenv("GANYMEDE_CACHE_BACKEND"); val != "" {
		cfg.Cache.Backend = val
	}
	if val := os.Getenv("GANYMEDE_CACHE_REDIS_URL"); val != "" {
		cfg.Cache.Redis.URL = val
	}

	// Audit overrides
	if val := os.Getenv("GANYMEDE_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("GANYMEDE_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLite.Path = val
	}
	if val := os.Getenv("GANYMEDE_AUDIT_RETENTION_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Retention.Enabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_AUDIT_RETENTION_MAX_AGE_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.Retention.MaxAgeDays = i
		}
	}

	// Limits overrides
	if val := os.Getenv("GANYMEDE_LIMITS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Limits.Enabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_LIMITS_STORAGE_BACKEND"); val != "" {
		cfg.Limits.Storage.Backend = val
	}
	if val := os.Getenv("GANYMEDE_LIMITS_STORAGE_SQLITE_PATH"); val != "" {
		cfg.Limits.Storage.SQLite.Path = val
	}

	// Telemetry overrides
	if val := os.Getenv("GANYMEDE_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_METRICS_DISABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Disabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

// applySourceEnvOverrides applies environment variable overrides for a
// single named source. Source environment variables follow the format
// GANYMEDE_SOURCES_<NAME>_<FIELD> where NAME is the uppercase source name
// with dashes replaced by underscores. Only credential-bearing fields are
// overridable, so connection strings and tokens can stay out of the file.
func applySourceEnvOverrides(cfg *Config, name string) {
	src := cfg.Sources[name]

	envName := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	prefix := fmt.Sprintf("GANYMEDE_SOURCES_%s_", envName)

	modified := false

	if val := os.Getenv(prefix + "URL"); val != "" {
		src.URL = val
		modified = true
	}
	if val := os.Getenv(prefix + "BEARER_TOKEN"); val != "" {
		src.BearerToken = val
		modified = true
	}
	if val := os.Getenv(prefix + "DSN"); val != "" {
		src.DSN = val
		modified = true
	}

	if modified {
		cfg.Sources[name] = src
	}
}
