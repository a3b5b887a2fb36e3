package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry maps policy source names to connectors. The fan-out stage
// resolves every source a policy names through a registry; resolution
// failures mean the policy references a source the deployment does not
// provide, which fails closed.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fetchers: make(map[string]Fetcher),
		logger:   slog.Default().With("component", "source"),
	}
}

// Register adds a fetcher under its own name. An existing fetcher with
// the same name is closed and replaced.
func (r *Registry) Register(fetcher Fetcher) error {
	if fetcher == nil {
		return fmt.Errorf("fetcher cannot be nil")
	}
	name := fetcher.Name()
	if name == "" {
		return fmt.Errorf("fetcher name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.fetchers[name]; ok {
		r.logger.Warn("replacing existing source connector", "source", name)
		if err := existing.Close(); err != nil {
			r.logger.Error("error closing replaced connector", "source", name, "error", err)
		}
	}
	r.fetchers[name] = fetcher

	r.logger.Debug("source connector registered", "source", name, "total_sources", len(r.fetchers))
	return nil
}

// Get returns the fetcher registered under name.
func (r *Registry) Get(name string) (Fetcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fetcher, ok := r.fetchers[name]
	if !ok {
		return nil, NewSourceError(name, "resolve", "source not registered", nil)
	}
	return fetcher, nil
}

// Names returns the registered source names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.fetchers))
	for name := range r.fetchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered connectors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fetchers)
}

// HealthCheck checks every registered connector and returns a map of
// source name to check result. A nil map value means healthy.
func (r *Registry) HealthCheck(ctx context.Context) map[string]error {
	r.mu.RLock()
	fetchers := make(map[string]Fetcher, len(r.fetchers))
	for name, fetcher := range r.fetchers {
		fetchers[name] = fetcher
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(fetchers))
	for name, fetcher := range fetchers {
		results[name] = fetcher.HealthCheck(ctx)
	}
	return results
}

// Close closes every registered connector and reports the combined
// errors, if any.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, fetcher := range r.fetchers {
		if err := fetcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	r.fetchers = make(map[string]Fetcher)
	return errors.Join(errs...)
}
