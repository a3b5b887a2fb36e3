package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryBackend keeps usage snapshots in process memory. Snapshots do
// not survive a restart; intended for tests and ephemeral
// deployments.
type MemoryBackend struct {
	mu     sync.RWMutex
	usage  map[string]*AgentUsage
	closed bool
}

// NewMemoryBackend creates a new in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		usage: make(map[string]*AgentUsage),
	}
}

// Save persists the usage snapshot for an agent.
func (m *MemoryBackend) Save(ctx context.Context, usage *AgentUsage) error {
	if usage == nil {
		return fmt.Errorf("usage is nil")
	}
	if usage.AgentID == "" {
		return fmt.Errorf("agent id is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("backend is closed")
	}

	stored := usage.Clone()
	now := time.Now()
	if stored.LastUpdated.IsZero() {
		stored.LastUpdated = now
	}
	if stored.CreatedAt.IsZero() {
		if existing, ok := m.usage[usage.AgentID]; ok {
			stored.CreatedAt = existing.CreatedAt
		} else {
			stored.CreatedAt = now
		}
	}
	m.usage[usage.AgentID] = stored
	return nil
}

// Load retrieves the snapshot for an agent.
func (m *MemoryBackend) Load(ctx context.Context, agentID string) (*AgentUsage, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("backend is closed")
	}
	return m.usage[agentID].Clone(), nil
}

// Delete removes the snapshot for an agent.
func (m *MemoryBackend) Delete(ctx context.Context, agentID string) error {
	if agentID == "" {
		return fmt.Errorf("agent id is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("backend is closed")
	}
	delete(m.usage, agentID)
	return nil
}

// Cleanup removes snapshots not updated since the given time.
func (m *MemoryBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, fmt.Errorf("backend is closed")
	}

	removed := 0
	for agentID, usage := range m.usage {
		if usage.LastUpdated.Before(olderThan) {
			delete(m.usage, agentID)
			removed++
		}
	}
	return removed, nil
}

// Close releases the backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.usage = nil
	return nil
}
