package fanout

import (
	"context"
	"time"

	"mercator-hq/ganymede/pkg/source"
)

// Task is one source retrieval the coordinator must perform.
type Task struct {
	// Source is the policy's name for the source.
	Source string

	// Fetcher is the connector resolved for the source.
	Fetcher source.Fetcher

	// Key is the subject key passed to the fetcher.
	Key string

	// Required marks sources whose failure fails the whole request.
	Required bool

	// CacheTTL is how long a fetched payload may be reused. Zero
	// means the source is never cached (real-time freshness).
	CacheTTL time.Duration
}

// Result is the outcome of one task.
type Result struct {
	Task    Task
	Payload *source.Payload
	Err     error
	Elapsed time.Duration
}

// OK reports whether the task produced a payload.
func (r *Result) OK() bool {
	return r.Err == nil && r.Payload != nil
}

// ResultSet holds the outcomes of a fan-out in task order.
type ResultSet struct {
	Results []Result
}

// Payloads returns the fetched payloads keyed by source name.
func (rs *ResultSet) Payloads() map[string]*source.Payload {
	payloads := make(map[string]*source.Payload, len(rs.Results))
	for i := range rs.Results {
		if rs.Results[i].OK() {
			payloads[rs.Results[i].Task.Source] = rs.Results[i].Payload
		}
	}
	return payloads
}

// Payload returns the payload for one source, or nil.
func (rs *ResultSet) Payload(sourceName string) *source.Payload {
	for i := range rs.Results {
		if rs.Results[i].Task.Source == sourceName && rs.Results[i].OK() {
			return rs.Results[i].Payload
		}
	}
	return nil
}

// RequiredFailure returns the first failed required task in task
// order, or nil when every required source was fetched.
func (rs *ResultSet) RequiredFailure() *Result {
	for i := range rs.Results {
		if rs.Results[i].Task.Required && !rs.Results[i].OK() {
			return &rs.Results[i]
		}
	}
	return nil
}

// Omitted returns the names of optional sources that failed, in task
// order. These are the sources the envelope reports as degraded.
func (rs *ResultSet) Omitted() []string {
	var omitted []string
	for i := range rs.Results {
		if !rs.Results[i].Task.Required && !rs.Results[i].OK() {
			omitted = append(omitted, rs.Results[i].Task.Source)
		}
	}
	return omitted
}

// PayloadCache is the cache the coordinator consults before fetching.
// A nil payload with a nil error is a miss. Implementations live in
// the cache package.
type PayloadCache interface {
	Get(ctx context.Context, sourceName, key string) (*source.Payload, error)
	Set(ctx context.Context, sourceName, key string, payload *source.Payload, ttl time.Duration) error
}
