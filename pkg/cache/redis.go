package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"mercator-hq/ganymede/pkg/source"
)

// RedisConfig holds configuration for the shared Redis cache.
type RedisConfig struct {
	// URL is a redis:// connection URL.
	URL string `yaml:"url"`

	// KeyPrefix namespaces cache keys so several deployments can
	// share one Redis instance.
	KeyPrefix string `yaml:"key_prefix"`

	// DialTimeout bounds the initial connection check.
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		URL:         "redis://localhost:6379",
		KeyPrefix:   "ganymede:cache",
		DialTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration.
func (c *RedisConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if _, err := redis.ParseURL(c.URL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	return nil
}

// RedisCache is a payload cache on a shared Redis instance, for
// deployments running more than one proxy. Payloads are stored as
// JSON with Redis-managed expiry.
type RedisCache struct {
	config *RedisConfig
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(config *RedisConfig) (*RedisCache, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, NewCacheError("redis", "connect", err)
	}

	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, NewCacheError("redis", "connect", err)
	}
	client := redis.NewClient(opts)

	dialTimeout := config.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, NewCacheError("redis", "connect", err)
	}

	cache := &RedisCache{
		config: config,
		client: client,
		logger: slog.Default().With("component", "cache-redis"),
	}
	cache.logger.Info("connected to redis cache", "prefix", config.KeyPrefix)
	return cache, nil
}

// Get returns the cached payload for the source and key, or (nil, nil)
// when there is none.
func (c *RedisCache) Get(ctx context.Context, sourceName, key string) (*source.Payload, error) {
	raw, err := c.client.Get(ctx, c.key(sourceName, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, NewCacheError("redis", "get", err)
	}

	var payload source.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, NewCacheError("redis", "get", fmt.Errorf("decoding cached payload: %w", err))
	}
	return &payload, nil
}

// Set stores the payload under the source and key for the given
// lifetime. A non-positive lifetime stores nothing.
func (c *RedisCache) Set(ctx context.Context, sourceName, key string, payload *source.Payload, ttl time.Duration) error {
	if payload == nil {
		return NewCacheError("redis", "set", fmt.Errorf("payload is nil"))
	}
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return NewCacheError("redis", "set", fmt.Errorf("encoding payload: %w", err))
	}
	if err := c.client.Set(ctx, c.key(sourceName, key), raw, ttl).Err(); err != nil {
		return NewCacheError("redis", "set", err)
	}
	return nil
}

// Flush drops every entry under this cache's prefix.
func (c *RedisCache) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.config.KeyPrefix+":*", 200).Result()
		if err != nil {
			return NewCacheError("redis", "flush", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return NewCacheError("redis", "flush", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	if err := c.client.Close(); err != nil {
		return NewCacheError("redis", "close", err)
	}
	return nil
}

func (c *RedisCache) key(sourceName, key string) string {
	return fmt.Sprintf("%s:%s:%s", c.config.KeyPrefix, sourceName, key)
}
