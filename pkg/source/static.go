package source

import (
	"context"
	"sync"
	"time"
)

// StaticFetcher serves records from an in-memory fixture set. It backs
// the bundled example configurations and deterministic tests.
type StaticFetcher struct {
	name string

	mu      sync.RWMutex
	records map[string]map[string]any
}

// NewStaticFetcher creates a fetcher serving the given records, keyed
// by subject key. Records are copied in.
func NewStaticFetcher(name string, records map[string]map[string]any) *StaticFetcher {
	f := &StaticFetcher{
		name:    name,
		records: make(map[string]map[string]any, len(records)),
	}
	for key, record := range records {
		f.records[key] = copyRecord(record)
	}
	return f
}

// Name returns the connector name.
func (f *StaticFetcher) Name() string {
	return f.name
}

// Fetch returns the fixture record for key, or *NotFoundError.
func (f *StaticFetcher) Fetch(ctx context.Context, key string) (*Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewSourceError(f.name, "fetch", "context cancelled", err)
	}

	f.mu.RLock()
	record, ok := f.records[key]
	f.mu.RUnlock()

	if !ok {
		return nil, NewNotFoundError(f.name, key)
	}

	return &Payload{
		Source:    f.name,
		Data:      copyRecord(record),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Set adds or replaces the record for key.
func (f *StaticFetcher) Set(key string, record map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[key] = copyRecord(record)
}

// Remove deletes the record for key.
func (f *StaticFetcher) Remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, key)
}

// HealthCheck always succeeds for a static fetcher.
func (f *StaticFetcher) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op for a static fetcher.
func (f *StaticFetcher) Close() error {
	return nil
}

func copyRecord(record map[string]any) map[string]any {
	if record == nil {
		return nil
	}
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out
}
