package storage

import (
	"context"
	"time"
)

// Backend persists per-agent usage snapshots. Implementations must be
// safe for concurrent use.
type Backend interface {
	// Save persists the usage snapshot for an agent, replacing any
	// existing one.
	Save(ctx context.Context, usage *AgentUsage) error

	// Load retrieves the snapshot for an agent, or nil when none
	// exists.
	Load(ctx context.Context, agentID string) (*AgentUsage, error)

	// Delete removes the snapshot for an agent. Deleting a missing
	// snapshot is not an error.
	Delete(ctx context.Context, agentID string) error

	// Cleanup removes snapshots not updated since the given time and
	// returns how many were removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}

// AgentUsage is the persisted quota state for one agent.
type AgentUsage struct {
	// AgentID identifies the agent.
	AgentID string `json:"agent_id"`

	// Minute and Hour are the live buckets of the two quota windows.
	Minute *WindowState `json:"minute,omitempty"`
	Hour   *WindowState `json:"hour,omitempty"`

	// LastUpdated is when the snapshot was written.
	LastUpdated time.Time `json:"last_updated"`

	// CreatedAt is when the agent's state was first persisted.
	CreatedAt time.Time `json:"created_at"`
}

// WindowState is a serializable sliding-window snapshot.
type WindowState struct {
	// Window is the rolling window duration.
	Window time.Duration `json:"window"`

	// BucketSize is the counter granularity.
	BucketSize time.Duration `json:"bucket_size"`

	// Buckets are the live counter buckets.
	Buckets []Bucket `json:"buckets,omitempty"`
}

// Bucket is one time-stamped counter in a window snapshot.
type Bucket struct {
	Timestamp time.Time `json:"timestamp"`
	Value     int64     `json:"value"`
}

// Clone returns a deep copy of the usage snapshot.
func (u *AgentUsage) Clone() *AgentUsage {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Minute = u.Minute.clone()
	clone.Hour = u.Hour.clone()
	return &clone
}

func (s *WindowState) clone() *WindowState {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Buckets != nil {
		clone.Buckets = append([]Bucket(nil), s.Buckets...)
	}
	return &clone
}
