package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"mercator-hq/ganymede/pkg/audit"
)

// MemoryConfig holds configuration for in-memory audit storage.
type MemoryConfig struct {
	// MaxRecords caps the number of records held. Appends beyond the
	// cap fail rather than evict: silently dropping records would
	// break the chain. Zero means unlimited.
	MaxRecords int `yaml:"max_records"`
}

// DefaultMemoryConfig returns a MemoryConfig with sensible defaults.
func DefaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		MaxRecords: 100000,
	}
}

// MemoryStorage is an in-memory audit storage backend. It is safe for
// concurrent use and intended for development and tests; records do
// not survive a restart.
type MemoryStorage struct {
	config *MemoryConfig

	mu      sync.RWMutex
	records []*audit.Record
	anchor  audit.Anchor
	closed  bool

	logger *slog.Logger
}

// NewMemoryStorage creates a new in-memory audit storage backend.
func NewMemoryStorage(config *MemoryConfig) *MemoryStorage {
	if config == nil {
		config = DefaultMemoryConfig()
	}
	return &MemoryStorage{
		config: config,
		logger: slog.Default().With("component", "audit-storage-memory"),
	}
}

// Append stores a new record.
func (s *MemoryStorage) Append(ctx context.Context, record *audit.Record) error {
	if record == nil {
		return audit.NewStorageError("memory", "append", fmt.Errorf("record is nil"))
	}
	if err := ctx.Err(); err != nil {
		return audit.NewStorageError("memory", "append", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return audit.NewStorageError("memory", "append", fmt.Errorf("storage is closed"))
	}
	if s.config.MaxRecords > 0 && len(s.records) >= s.config.MaxRecords {
		return audit.NewStorageError("memory", "append",
			fmt.Errorf("record cap %d reached", s.config.MaxRecords))
	}
	if want := s.nextSeqLocked(); record.Seq != want {
		return audit.NewStorageError("memory", "append",
			fmt.Errorf("sequence %d out of order, want %d", record.Seq, want))
	}

	s.records = append(s.records, record.Clone())
	return nil
}

func (s *MemoryStorage) nextSeqLocked() int64 {
	if len(s.records) == 0 {
		return s.anchor.Seq + 1
	}
	return s.records[len(s.records)-1].Seq + 1
}

// List returns records matching the query in ascending Seq order.
func (s *MemoryStorage) List(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, audit.NewStorageError("memory", "list", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, audit.NewStorageError("memory", "list", fmt.Errorf("storage is closed"))
	}

	var matched []*audit.Record
	for _, record := range s.records {
		if query.Matches(record) {
			matched = append(matched, record)
		}
	}
	matched = applyWindow(matched, query)

	out := make([]*audit.Record, len(matched))
	for i, record := range matched {
		out[i] = record.Clone()
	}
	return out, nil
}

func applyWindow(records []*audit.Record, query *audit.Query) []*audit.Record {
	if query == nil {
		return records
	}
	if query.Offset > 0 {
		if query.Offset >= len(records) {
			return nil
		}
		records = records[query.Offset:]
	}
	if query.Limit > 0 && len(records) > query.Limit {
		records = records[:query.Limit]
	}
	return records
}

// Stream returns matching records over a channel in ascending Seq
// order. The snapshot is taken when Stream is called; records appended
// afterwards are not included.
func (s *MemoryStorage) Stream(ctx context.Context, query *audit.Query) (<-chan *audit.Record, <-chan error, error) {
	snapshot, err := s.List(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	records := make(chan *audit.Record)
	errs := make(chan error, 1)
	go func() {
		defer close(records)
		defer close(errs)
		for _, record := range snapshot {
			select {
			case records <- record:
			case <-ctx.Done():
				errs <- audit.NewStorageError("memory", "stream", ctx.Err())
				return
			}
		}
	}()
	return records, errs, nil
}

// Count returns the number of records matching the query.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, audit.NewStorageError("memory", "count", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, audit.NewStorageError("memory", "count", fmt.Errorf("storage is closed"))
	}

	var count int64
	for _, record := range s.records {
		if query.Matches(record) {
			count++
		}
	}
	return count, nil
}

// Last returns the most recently appended record, or nil when the
// trail is empty.
func (s *MemoryStorage) Last(ctx context.Context) (*audit.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, audit.NewStorageError("memory", "last", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, audit.NewStorageError("memory", "last", fmt.Errorf("storage is closed"))
	}
	if len(s.records) == 0 {
		return nil, nil
	}
	return s.records[len(s.records)-1].Clone(), nil
}

// Anchor returns the current chain anchor.
func (s *MemoryStorage) Anchor(ctx context.Context) (audit.Anchor, error) {
	if err := ctx.Err(); err != nil {
		return audit.Anchor{}, audit.NewStorageError("memory", "anchor", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return audit.Anchor{}, audit.NewStorageError("memory", "anchor", fmt.Errorf("storage is closed"))
	}
	return s.anchor, nil
}

// PruneToSeq removes every record with Seq <= seq and advances the
// anchor to the pruned boundary.
func (s *MemoryStorage) PruneToSeq(ctx context.Context, seq int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, audit.NewStorageError("memory", "prune", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, audit.NewStorageError("memory", "prune", fmt.Errorf("storage is closed"))
	}
	if seq <= s.anchor.Seq {
		return 0, nil
	}
	if len(s.records) == 0 || seq > s.records[len(s.records)-1].Seq {
		return 0, audit.NewStorageError("memory", "prune",
			fmt.Errorf("prune boundary %d is beyond the last record", seq))
	}

	// Records are gap-free, so the boundary index follows from the
	// first record's sequence.
	idx := int(seq - s.records[0].Seq)
	boundary := s.records[idx]
	kept := make([]*audit.Record, len(s.records)-idx-1)
	copy(kept, s.records[idx+1:])

	removed := int64(idx + 1)
	s.records = kept
	s.anchor = audit.Anchor{Seq: boundary.Seq, Digest: boundary.Digest}

	s.logger.Info("pruned audit records",
		"removed", removed,
		"anchor_seq", s.anchor.Seq)
	return removed, nil
}

// Close releases the storage. Further operations fail.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
