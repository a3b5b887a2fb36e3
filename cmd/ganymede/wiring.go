package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/audit/retention"
	auditstorage "mercator-hq/ganymede/pkg/audit/storage"
	"mercator-hq/ganymede/pkg/cache"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/identity"
	"mercator-hq/ganymede/pkg/limits"
	limitsstorage "mercator-hq/ganymede/pkg/limits/storage"
	"mercator-hq/ganymede/pkg/source"
)

// buildVerifier selects the token verifier from configuration.
func buildVerifier(cfg *config.IdentityConfig) (identity.Verifier, error) {
	switch cfg.Mode {
	case "", "static":
		agents := make([]*identity.Agent, 0, len(cfg.Agents))
		for _, a := range cfg.Agents {
			agents = append(agents, &identity.Agent{
				ID:      a.ID,
				Token:   a.Token,
				Enabled: !a.Disabled,
				Scopes:  a.Scopes,
				Intents: a.Intents,
			})
		}
		return identity.NewStaticVerifier(agents), nil
	case "jwt":
		return identity.NewJWTVerifier(identity.JWTVerifierConfig{
			Secret:   cfg.JWT.Secret,
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
		})
	default:
		return nil, fmt.Errorf("unsupported identity mode %q", cfg.Mode)
	}
}

// buildSources constructs one connector per configured source and
// registers them. On any failure the already-built connectors are
// closed.
func buildSources(cfgs map[string]config.SourceConfig) (*source.Registry, error) {
	registry := source.NewRegistry()
	for name, sc := range cfgs {
		fetcher, err := buildSource(name, &sc)
		if err != nil {
			registry.Close()
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		if err := registry.Register(fetcher); err != nil {
			fetcher.Close()
			registry.Close()
			return nil, err
		}
	}
	return registry, nil
}

func buildSource(name string, sc *config.SourceConfig) (source.Fetcher, error) {
	switch sc.Type {
	case "static":
		records := sc.Records
		if sc.FixtureFile != "" {
			loaded, err := loadFixtureRecords(sc.FixtureFile)
			if err != nil {
				return nil, err
			}
			// Inline records overlay the fixture file.
			for key, record := range records {
				loaded[key] = record
			}
			records = loaded
		}
		return source.NewStaticFetcher(name, records), nil
	case "http":
		return source.NewHTTPFetcher(&source.HTTPConfig{
			Name:             name,
			BaseURL:          sc.URL,
			PathTemplate:     sc.PathTemplate,
			KeyParam:         sc.KeyParam,
			HealthPath:       sc.HealthPath,
			Headers:          sc.Headers,
			BearerToken:      sc.BearerToken,
			Timeout:          sc.Timeout,
			MaxRetries:       sc.MaxRetries,
			MaxResponseBytes: sc.MaxResponseBytes,
		})
	case "postgres", "mysql":
		return source.NewSQLFetcher(&source.SQLConfig{
			Name:            name,
			Driver:          sc.Type,
			DSN:             sc.DSN,
			Query:           sc.Query,
			Timeout:         sc.Timeout,
			MaxOpenConns:    sc.MaxOpenConns,
			MaxIdleConns:    sc.MaxIdleConns,
			ConnMaxLifetime: sc.ConnMaxLifetime,
		})
	default:
		return nil, fmt.Errorf("unsupported source type %q", sc.Type)
	}
}

// loadFixtureRecords reads a YAML file of records keyed by subject key.
func loadFixtureRecords(path string) (map[string]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	records := make(map[string]map[string]any)
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse fixture file %s: %w", path, err)
	}
	return records, nil
}

// buildCache constructs the payload cache backend.
func buildCache(cfg *config.CacheConfig) (cache.Cache, error) {
	cacheCfg := &cache.Config{Backend: cfg.Backend}
	switch cfg.Backend {
	case cache.BackendMemory:
		cacheCfg.Memory = &cache.MemoryConfig{MaxEntries: cfg.Memory.MaxEntries}
	case cache.BackendRedis:
		cacheCfg.Redis = &cache.RedisConfig{
			URL:         cfg.Redis.URL,
			KeyPrefix:   cfg.Redis.KeyPrefix,
			DialTimeout: cfg.Redis.DialTimeout,
		}
	}
	return cache.New(cacheCfg)
}

// buildAuditStorage opens the audit trail backend.
func buildAuditStorage(cfg *config.AuditConfig) (audit.Storage, error) {
	switch cfg.Backend {
	case "sqlite":
		return auditstorage.NewSQLiteStorage(&auditstorage.SQLiteConfig{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
	case "", "memory":
		return auditstorage.NewMemoryStorage(&auditstorage.MemoryConfig{
			MaxRecords: cfg.Memory.MaxRecords,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported audit backend %q", cfg.Backend)
	}
}

// retentionConfig maps the retention section onto the pruner's config.
func retentionConfig(cfg *config.RetentionConfig) *retention.Config {
	archiveDir := ""
	if cfg.Archive {
		archiveDir = cfg.ArchiveDir
	}
	return &retention.Config{
		MaxAge:     time.Duration(cfg.MaxAgeDays) * 24 * time.Hour,
		MaxRecords: cfg.MaxRecords,
		ArchiveDir: archiveDir,
		Schedule:   cfg.Schedule,
	}
}

// buildLimiter constructs the quota manager, or nil when quotas are
// disabled.
func buildLimiter(cfg *config.LimitsConfig) (*limits.Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var backend limitsstorage.Backend
	switch cfg.Storage.Backend {
	case "sqlite":
		var err error
		backend, err = limitsstorage.NewSQLiteBackend(&limitsstorage.SQLiteConfig{
			Path:               cfg.Storage.SQLite.Path,
			BusyTimeout:        cfg.Storage.SQLite.BusyTimeout,
			CheckpointInterval: cfg.Storage.SQLite.CheckpointInterval,
		})
		if err != nil {
			return nil, err
		}
	case "", "memory":
		// NewManager defaults to the memory backend.
	default:
		return nil, fmt.Errorf("unsupported limits backend %q", cfg.Storage.Backend)
	}

	perAgent := make(map[string]limits.Quota, len(cfg.PerAgent))
	for agentID, q := range cfg.PerAgent {
		perAgent[agentID] = limits.Quota{
			RequestsPerMinute: q.RequestsPerMinute,
			RequestsPerHour:   q.RequestsPerHour,
		}
	}

	return limits.NewManager(&limits.Config{
		Enabled: true,
		DefaultQuota: limits.Quota{
			RequestsPerMinute: cfg.DefaultQuota.RequestsPerMinute,
			RequestsPerHour:   cfg.DefaultQuota.RequestsPerHour,
		},
		PerAgent:        perAgent,
		IdleExpiry:      cfg.IdleExpiry,
		CleanupInterval: cfg.CleanupInterval,
	}, backend)
}
