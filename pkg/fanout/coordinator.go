package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/source"
)

// Config holds coordinator settings.
type Config struct {
	// SourceTimeout bounds each individual fetch.
	SourceTimeout time.Duration `yaml:"source_timeout"`

	// TotalTimeout bounds the whole fan-out stage.
	TotalTimeout time.Duration `yaml:"total_timeout"`

	// MaxConcurrent caps parallel upstream fetches per request.
	// Zero means no cap.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SourceTimeout: 5 * time.Second,
		TotalTimeout:  10 * time.Second,
		MaxConcurrent: 8,
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.SourceTimeout <= 0 {
		return fmt.Errorf("source_timeout must be positive")
	}
	if c.TotalTimeout <= 0 {
		return fmt.Errorf("total_timeout must be positive")
	}
	if c.TotalTimeout < c.SourceTimeout {
		return fmt.Errorf("total_timeout must be at least source_timeout")
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent cannot be negative")
	}
	return nil
}

// Coordinator fetches every source a request needs in parallel.
type Coordinator struct {
	config *Config
	cache  PayloadCache
	logger *slog.Logger
}

// NewCoordinator creates a coordinator. The cache may be nil, which
// disables payload caching.
func NewCoordinator(cfg *Config, cache PayloadCache) (*Coordinator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fanout config: %w", err)
	}
	return &Coordinator{
		config: cfg,
		cache:  cache,
		logger: slog.Default().With("component", "fanout"),
	}, nil
}

// Execute runs all tasks concurrently and waits for every one to
// finish or fail. It returns a TimeoutError when the total budget is
// exhausted with fetches still outstanding; individual source
// failures are reported inside the ResultSet, not as an error.
func (c *Coordinator) Execute(ctx context.Context, tasks []Task) (*ResultSet, error) {
	if len(tasks) == 0 {
		return &ResultSet{}, nil
	}

	totalCtx, cancel := context.WithTimeout(ctx, c.config.TotalTimeout)
	defer cancel()

	var sem chan struct{}
	if c.config.MaxConcurrent > 0 {
		sem = make(chan struct{}, c.config.MaxConcurrent)
	}

	results := make([]Result, len(tasks))
	var wg sync.WaitGroup
	for i := range tasks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.fetchOne(totalCtx, tasks[i], sem)
		}(i)
	}
	wg.Wait()

	rs := &ResultSet{Results: results}

	if totalCtx.Err() != nil && ctx.Err() == nil {
		completed := 0
		for i := range results {
			if results[i].OK() {
				completed++
			}
		}
		if completed < len(tasks) {
			c.logger.Warn("fan-out exhausted total budget",
				"timeout", c.config.TotalTimeout,
				"completed", completed,
				"total", len(tasks),
			)
			return nil, NewTimeoutError(c.config.TotalTimeout, completed, len(tasks))
		}
	}

	return rs, nil
}

// fetchOne retrieves a single source, consulting the payload cache
// first when the task is cacheable.
func (c *Coordinator) fetchOne(ctx context.Context, task Task, sem chan struct{}) Result {
	start := time.Now()

	if sem != nil {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		case <-ctx.Done():
			return Result{
				Task:    task,
				Err:     source.NewSourceError(task.Source, "fetch", "cancelled before fetch started", ctx.Err()),
				Elapsed: time.Since(start),
			}
		}
	}

	if payload := c.cacheGet(ctx, task); payload != nil {
		return Result{Task: task, Payload: payload, Elapsed: time.Since(start)}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.config.SourceTimeout)
	defer cancel()

	payload, err := task.Fetcher.Fetch(fetchCtx, task.Key)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = source.NewSourceError(task.Source, "fetch",
				fmt.Sprintf("source timed out after %s", c.config.SourceTimeout), fetchCtx.Err())
		}
		c.logger.Warn("source fetch failed",
			"source", task.Source,
			"required", task.Required,
			"elapsed", elapsed,
			"error", err,
		)
		return Result{Task: task, Err: err, Elapsed: elapsed}
	}

	c.cacheSet(ctx, task, payload)

	c.logger.Debug("source fetched",
		"source", task.Source,
		"cached", payload.Cached,
		"elapsed", elapsed,
	)
	return Result{Task: task, Payload: payload, Elapsed: elapsed}
}

// cacheGet consults the payload cache. Errors are soft.
func (c *Coordinator) cacheGet(ctx context.Context, task Task) *source.Payload {
	if c.cache == nil || task.CacheTTL <= 0 {
		return nil
	}
	payload, err := c.cache.Get(ctx, task.Source, task.Key)
	if err != nil {
		c.logger.Warn("payload cache read failed", "source", task.Source, "error", err)
		return nil
	}
	if payload == nil {
		return nil
	}
	payload.Cached = true
	return payload
}

// cacheSet stores a fresh payload. Errors are soft.
func (c *Coordinator) cacheSet(ctx context.Context, task Task, payload *source.Payload) {
	if c.cache == nil || task.CacheTTL <= 0 || payload.Cached {
		return
	}
	if err := c.cache.Set(ctx, task.Source, task.Key, payload, task.CacheTTL); err != nil {
		c.logger.Warn("payload cache write failed", "source", task.Source, "error", err)
	}
}
