package limits

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/limits/storage"
)

// Config contains configuration for the quota manager.
type Config struct {
	// Enabled turns quota enforcement on. When false every request is
	// allowed.
	Enabled bool `yaml:"enabled"`

	// DefaultQuota applies to agents without a per-agent entry. A zero
	// quota means unlimited.
	DefaultQuota Quota `yaml:"default_quota"`

	// PerAgent overrides the default quota for specific agents.
	PerAgent map[string]Quota `yaml:"per_agent"`

	// IdleExpiry is how long an agent's counters are kept after its
	// last request.
	IdleExpiry time.Duration `yaml:"idle_expiry"`

	// CleanupInterval is how often idle counters are swept. Zero
	// disables the background sweep.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultConfig returns a Config with sensible defaults. Enforcement is
// on but the default quota is unlimited until configured.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		IdleExpiry:      24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.DefaultQuota.RequestsPerMinute < 0 || c.DefaultQuota.RequestsPerHour < 0 {
		return fmt.Errorf("default quota must not be negative")
	}
	for agentID, quota := range c.PerAgent {
		if agentID == "" {
			return fmt.Errorf("per-agent quota with empty agent id")
		}
		if quota.RequestsPerMinute < 0 || quota.RequestsPerHour < 0 {
			return fmt.Errorf("quota for agent %q must not be negative", agentID)
		}
	}
	if c.IdleExpiry < 0 {
		return fmt.Errorf("idle expiry must not be negative")
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("cleanup interval must not be negative")
	}
	return nil
}

// agentState tracks one agent's live request windows. Its mutex
// serializes the check-then-increment sequence so concurrent requests
// cannot slip past the limit together.
type agentState struct {
	mu        sync.Mutex
	minute    *slidingWindow
	hour      *slidingWindow
	restored  bool
	lastSeen  time.Time
	createdAt time.Time
}

// Manager enforces per-agent request quotas over rolling minute and
// hour windows.
//
// Counters live in memory and are written through to the storage
// backend after every allowed request, so a restart resumes counting
// where it left off. Storage failures never block a request: the
// manager logs them and keeps enforcing from its in-memory state.
type Manager struct {
	config  *Config
	backend storage.Backend
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	agents map[string]*agentState

	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a quota manager backed by the given storage. A nil
// backend falls back to in-memory storage.
func NewManager(config *Config, backend storage.Backend) (*Manager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid limits config: %w", err)
	}
	if backend == nil {
		backend = storage.NewMemoryBackend()
	}

	manager := &Manager{
		config:  config,
		backend: backend,
		logger:  slog.Default().With("component", "limits"),
		now:     time.Now,
		agents:  make(map[string]*agentState),
		done:    make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go manager.cleanupLoop(config.CleanupInterval)
	}
	return manager, nil
}

// Allow checks whether the agent may make another request and, if so,
// counts it. Blocked requests are not counted against the quota.
//
// The returned error covers system failures only; a denied request
// comes back as a Decision with Allowed false.
func (m *Manager) Allow(ctx context.Context, agentID string) (*Decision, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent id is required")
	}

	quota := m.quotaFor(agentID)
	if !m.config.Enabled || quota.Unlimited() {
		return &Decision{Allowed: true, AgentID: agentID, Remaining: -1}, nil
	}

	state := m.stateFor(agentID)
	state.mu.Lock()
	defer state.mu.Unlock()

	now := m.now()
	if !state.restored {
		m.restoreLocked(ctx, agentID, state, now)
	}
	state.lastSeen = now

	if quota.RequestsPerMinute > 0 {
		if used := state.minute.sum(now); used >= quota.RequestsPerMinute {
			return blockedDecision(agentID, state.minute, quota.RequestsPerMinute, time.Minute, now), nil
		}
	}
	if quota.RequestsPerHour > 0 {
		if used := state.hour.sum(now); used >= quota.RequestsPerHour {
			return blockedDecision(agentID, state.hour, quota.RequestsPerHour, time.Hour, now), nil
		}
	}

	state.minute.add(now, 1)
	state.hour.add(now, 1)

	decision := &Decision{Allowed: true, AgentID: agentID, Remaining: -1}
	if quota.RequestsPerMinute > 0 {
		decision.Limit = quota.RequestsPerMinute
		decision.Window = time.Minute
		decision.Remaining = quota.RequestsPerMinute - state.minute.sum(now)
	}
	if quota.RequestsPerHour > 0 {
		if remaining := quota.RequestsPerHour - state.hour.sum(now); decision.Remaining < 0 || remaining < decision.Remaining {
			decision.Limit = quota.RequestsPerHour
			decision.Window = time.Hour
			decision.Remaining = remaining
		}
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}

	m.persistLocked(ctx, agentID, state, now)
	return decision, nil
}

// Reset clears the counters for an agent, in memory and in storage.
func (m *Manager) Reset(ctx context.Context, agentID string) error {
	if agentID == "" {
		return fmt.Errorf("agent id is required")
	}

	m.mu.Lock()
	delete(m.agents, agentID)
	m.mu.Unlock()

	if err := m.backend.Delete(ctx, agentID); err != nil {
		return fmt.Errorf("resetting quota for agent %s: %w", agentID, err)
	}
	return nil
}

// Cleanup drops counters for agents idle longer than the configured
// expiry. Returns how many stored snapshots were removed.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.config.IdleExpiry)

	m.mu.Lock()
	for agentID, state := range m.agents {
		state.mu.Lock()
		idle := !state.lastSeen.IsZero() && state.lastSeen.Before(cutoff)
		state.mu.Unlock()
		if idle {
			delete(m.agents, agentID)
		}
	}
	m.mu.Unlock()

	removed, err := m.backend.Cleanup(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up stored usage: %w", err)
	}
	return removed, nil
}

// Close stops the cleanup loop, flushes counters to storage, and closes
// the backend.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.done)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		m.mu.RLock()
		for agentID, state := range m.agents {
			state.mu.Lock()
			m.persistLocked(ctx, agentID, state, m.now())
			state.mu.Unlock()
		}
		m.mu.RUnlock()

		err = m.backend.Close()
	})
	return err
}

func (m *Manager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			removed, err := m.Cleanup(ctx)
			cancel()
			if err != nil {
				m.logger.Warn("quota cleanup failed", "error", err)
			} else if removed > 0 {
				m.logger.Debug("swept idle quota counters", "removed", removed)
			}
		case <-m.done:
			return
		}
	}
}

// quotaFor resolves the quota for an agent.
func (m *Manager) quotaFor(agentID string) Quota {
	if quota, ok := m.config.PerAgent[agentID]; ok {
		return quota
	}
	return m.config.DefaultQuota
}

// stateFor gets or creates the live state for an agent.
func (m *Manager) stateFor(agentID string) *agentState {
	m.mu.RLock()
	state, ok := m.agents[agentID]
	m.mu.RUnlock()
	if ok {
		return state
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.agents[agentID]; ok {
		return state
	}
	state = &agentState{
		minute:    newSlidingWindow(time.Minute, time.Second),
		hour:      newSlidingWindow(time.Hour, time.Minute),
		createdAt: m.now(),
	}
	m.agents[agentID] = state
	return state
}

// restoreLocked seeds the windows from the stored snapshot on the
// agent's first request. Load failures start the agent fresh rather
// than blocking it. Caller must hold state.mu.
func (m *Manager) restoreLocked(ctx context.Context, agentID string, state *agentState, now time.Time) {
	state.restored = true

	usage, err := m.backend.Load(ctx, agentID)
	if err != nil {
		m.logger.Warn("failed to load usage state, starting fresh",
			"agent_id", agentID,
			"error", err)
		return
	}
	if usage == nil {
		return
	}

	if usage.Minute != nil {
		state.minute.restore(now, fromStorageBuckets(usage.Minute.Buckets))
	}
	if usage.Hour != nil {
		state.hour.restore(now, fromStorageBuckets(usage.Hour.Buckets))
	}
	if !usage.CreatedAt.IsZero() {
		state.createdAt = usage.CreatedAt
	}
}

// persistLocked writes the agent's counters through to storage.
// Failures are logged and otherwise ignored; enforcement continues from
// memory. Caller must hold state.mu.
func (m *Manager) persistLocked(ctx context.Context, agentID string, state *agentState, now time.Time) {
	usage := &storage.AgentUsage{
		AgentID:     agentID,
		Minute:      toWindowState(state.minute, time.Minute, time.Second),
		Hour:        toWindowState(state.hour, time.Hour, time.Minute),
		LastUpdated: now,
		CreatedAt:   state.createdAt,
	}
	if err := m.backend.Save(ctx, usage); err != nil {
		m.logger.Warn("failed to persist usage state, keeping in-memory counts",
			"agent_id", agentID,
			"error", err)
	}
}

// blockedDecision builds the denial for a window that is at its limit.
// RetryAfter is when the oldest counted request leaves the window,
// clamped to at least one second.
func blockedDecision(agentID string, w *slidingWindow, limit int64, window time.Duration, now time.Time) *Decision {
	retryAfter := time.Second
	if ts, ok := w.oldest(now); ok {
		if wait := ts.Add(window).Sub(now); wait > retryAfter {
			retryAfter = wait
		}
	}
	return &Decision{
		Allowed:    false,
		AgentID:    agentID,
		Limit:      limit,
		Window:     window,
		Remaining:  0,
		RetryAfter: retryAfter,
	}
}

func toWindowState(w *slidingWindow, window, bucketSize time.Duration) *storage.WindowState {
	buckets := w.snapshot()
	if len(buckets) == 0 {
		return nil
	}
	state := &storage.WindowState{
		Window:     window,
		BucketSize: bucketSize,
		Buckets:    make([]storage.Bucket, 0, len(buckets)),
	}
	for _, b := range buckets {
		state.Buckets = append(state.Buckets, storage.Bucket{
			Timestamp: b.timestamp,
			Value:     b.value,
		})
	}
	return state
}

func fromStorageBuckets(in []storage.Bucket) []windowBucket {
	out := make([]windowBucket, 0, len(in))
	for _, b := range in {
		out = append(out, windowBucket{timestamp: b.Timestamp, value: b.Value})
	}
	return out
}
