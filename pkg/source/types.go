package source

import (
	"context"
	"time"
)

// Payload is one source's raw answer for a subject key, before any
// filtering has been applied.
type Payload struct {
	// Source is the connector name that produced the record.
	Source string `json:"source"`

	// Data is the raw record as returned by the upstream system.
	Data map[string]any `json:"data"`

	// FetchedAt is when the record was retrieved from the upstream,
	// in UTC. For cached payloads it is the original fetch time.
	FetchedAt time.Time `json:"fetched_at"`

	// Cached reports whether the payload was served from the
	// payload cache rather than the upstream.
	Cached bool `json:"cached"`
}

// Clone returns a copy of the payload with its own top-level data map.
// Nested values are shared.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	clone := &Payload{
		Source:    p.Source,
		FetchedAt: p.FetchedAt,
		Cached:    p.Cached,
	}
	if p.Data != nil {
		clone.Data = make(map[string]any, len(p.Data))
		for k, v := range p.Data {
			clone.Data[k] = v
		}
	}
	return clone
}

// Fields returns the top-level field names present in the payload.
func (p *Payload) Fields() []string {
	if p == nil || len(p.Data) == 0 {
		return nil
	}
	fields := make([]string, 0, len(p.Data))
	for k := range p.Data {
		fields = append(fields, k)
	}
	return fields
}

// Fetcher is the capability a data-source connector provides to the
// fan-out stage.
type Fetcher interface {
	// Name returns the connector name policies refer to.
	Name() string

	// Fetch retrieves the raw record for the given subject key.
	// Unknown keys return *NotFoundError; other failures return
	// *SourceError.
	Fetch(ctx context.Context, key string) (*Payload, error)

	// HealthCheck verifies the upstream is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases connector resources.
	Close() error
}
