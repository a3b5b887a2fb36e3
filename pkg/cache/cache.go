package cache

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/ganymede/pkg/source"
)

// Backend names accepted in configuration.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Cache is a payload cache with a lifecycle. The Get and Set methods
// satisfy the fan-out coordinator's cache contract.
type Cache interface {
	Get(ctx context.Context, sourceName, key string) (*source.Payload, error)
	Set(ctx context.Context, sourceName, key string, payload *source.Payload, ttl time.Duration) error
	Close() error
}

// Config selects and configures a cache backend.
type Config struct {
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend"`

	Memory *MemoryConfig `yaml:"memory"`
	Redis  *RedisConfig  `yaml:"redis"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendMemory,
		Memory:  DefaultMemoryConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendRedis:
		if c.Redis == nil {
			return fmt.Errorf("redis backend selected but not configured")
		}
		return c.Redis.Validate()
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
}

// New creates the cache the configuration selects.
func New(config *Config) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Backend {
	case BackendMemory:
		return NewMemoryCache(config.Memory), nil
	case BackendRedis:
		return NewRedisCache(config.Redis)
	default:
		return nil, fmt.Errorf("unknown backend %q", config.Backend)
	}
}
