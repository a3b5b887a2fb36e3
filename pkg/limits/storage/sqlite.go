package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend persists usage snapshots in a SQLite file via the
// pure-Go driver, keeping the binary free of cgo. Suitable for
// single-instance deployments.
type SQLiteBackend struct {
	db        *sql.DB
	path      string
	done      chan struct{}
	closeOnce sync.Once

	saveStmt    *sql.Stmt
	loadStmt    *sql.Stmt
	deleteStmt  *sql.Stmt
	cleanupStmt *sql.Stmt
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// BusyTimeout is how long a statement waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often the WAL is checkpointed.
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// DefaultSQLiteConfig returns a SQLiteConfig with sensible defaults.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:               "ganymede-quotas.db",
		BusyTimeout:        5 * time.Second,
		CheckpointInterval: 5 * time.Minute,
	}
}

// NewSQLiteBackend opens the database and prepares the statements.
func NewSQLiteBackend(config *SQLiteConfig) (*SQLiteBackend, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	busyTimeout := config.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	checkpointInterval := config.CheckpointInterval
	if checkpointInterval <= 0 {
		checkpointInterval = 5 * time.Minute
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		config.Path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single writer; the manager serializes writes per agent anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{
		db:   db,
		path: config.Path,
		done: make(chan struct{}),
	}
	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing statements: %w", err)
	}

	go backend.checkpointLoop(checkpointInterval)
	return backend, nil
}

func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agent_usage (
		agent_id     TEXT PRIMARY KEY,
		minute_state TEXT,
		hour_state   TEXT,
		last_updated INTEGER NOT NULL,
		created_at   INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_agent_usage_last_updated ON agent_usage(last_updated);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO agent_usage (agent_id, minute_state, hour_state, last_updated, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (agent_id) DO UPDATE SET
			minute_state = excluded.minute_state,
			hour_state = excluded.hour_state,
			last_updated = excluded.last_updated
	`)
	if err != nil {
		return fmt.Errorf("preparing save: %w", err)
	}

	s.loadStmt, err = s.db.Prepare(`
		SELECT minute_state, hour_state, last_updated, created_at
		FROM agent_usage
		WHERE agent_id = ?
	`)
	if err != nil {
		return fmt.Errorf("preparing load: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM agent_usage WHERE agent_id = ?`)
	if err != nil {
		return fmt.Errorf("preparing delete: %w", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`DELETE FROM agent_usage WHERE last_updated < ?`)
	if err != nil {
		return fmt.Errorf("preparing cleanup: %w", err)
	}
	return nil
}

// checkpointLoop periodically compacts the WAL so the sidecar files
// stay bounded on long-running instances.
func (s *SQLiteBackend) checkpointLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		case <-s.done:
			return
		}
	}
}

// Save persists the usage snapshot for an agent.
func (s *SQLiteBackend) Save(ctx context.Context, usage *AgentUsage) error {
	if usage == nil {
		return fmt.Errorf("usage is nil")
	}
	if usage.AgentID == "" {
		return fmt.Errorf("agent id is required")
	}

	minuteJSON, err := marshalWindow(usage.Minute)
	if err != nil {
		return fmt.Errorf("encoding minute window: %w", err)
	}
	hourJSON, err := marshalWindow(usage.Hour)
	if err != nil {
		return fmt.Errorf("encoding hour window: %w", err)
	}

	now := time.Now()
	lastUpdated := usage.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = now
	}
	createdAt := usage.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.saveStmt.ExecContext(ctx,
		usage.AgentID,
		minuteJSON,
		hourJSON,
		lastUpdated.Unix(),
		createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving usage: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for an agent.
func (s *SQLiteBackend) Load(ctx context.Context, agentID string) (*AgentUsage, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent id is required")
	}

	var (
		minuteJSON  sql.NullString
		hourJSON    sql.NullString
		lastUpdated int64
		createdAt   int64
	)
	err := s.loadStmt.QueryRowContext(ctx, agentID).Scan(
		&minuteJSON, &hourJSON, &lastUpdated, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading usage: %w", err)
	}

	usage := &AgentUsage{
		AgentID:     agentID,
		LastUpdated: time.Unix(lastUpdated, 0).UTC(),
		CreatedAt:   time.Unix(createdAt, 0).UTC(),
	}
	if usage.Minute, err = unmarshalWindow(minuteJSON); err != nil {
		return nil, fmt.Errorf("decoding minute window: %w", err)
	}
	if usage.Hour, err = unmarshalWindow(hourJSON); err != nil {
		return nil, fmt.Errorf("decoding hour window: %w", err)
	}
	return usage, nil
}

// Delete removes the snapshot for an agent.
func (s *SQLiteBackend) Delete(ctx context.Context, agentID string) error {
	if agentID == "" {
		return fmt.Errorf("agent id is required")
	}
	if _, err := s.deleteStmt.ExecContext(ctx, agentID); err != nil {
		return fmt.Errorf("deleting usage: %w", err)
	}
	return nil
}

// Cleanup removes snapshots not updated since the given time.
func (s *SQLiteBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.cleanupStmt.ExecContext(ctx, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("cleaning up usage: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleaning up usage: %w", err)
	}
	return int(removed), nil
}

// Close stops the checkpoint loop and closes the database.
func (s *SQLiteBackend) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.db.Close()
	})
	return err
}

func marshalWindow(state *WindowState) (any, error) {
	if state == nil || len(state.Buckets) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func unmarshalWindow(value sql.NullString) (*WindowState, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	state := &WindowState{}
	if err := json.Unmarshal([]byte(value.String), state); err != nil {
		return nil, err
	}
	return state, nil
}
