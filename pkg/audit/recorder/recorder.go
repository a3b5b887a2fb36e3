// Package recorder builds audit records and appends them to storage.
//
// The recorder is synchronous: Record returns only after the record
// is durably stored, so the proxy can hold a response until its audit
// entry exists. Appends are serialized under a mutex because each
// record's digest chains to its predecessor's.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/audit"
)

// Config holds configuration for the recorder.
type Config struct {
	// WriteTimeout bounds the storage append for one record.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		WriteTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive")
	}
	return nil
}

// Entry is the caller-populated portion of an audit record. The
// recorder assigns the identity, sequence, and chain fields.
type Entry struct {
	RequestID      string
	Timestamp      time.Time
	AgentID        string
	Intent         string
	SubjectKey     string
	PolicyDecision string

	Success      bool
	ErrorType    string
	ErrorMessage string

	SourcesQueried []string
	SourcesOmitted []string
	FieldsReturned map[string][]string
	FieldsRedacted map[string][]string

	OriginalSize   int64
	FilteredSize   int64
	Classification string
	EnvelopeDigest string

	Duration time.Duration
}

// Recorder appends audit records to storage, linking each to the
// previous record's digest. Safe for concurrent use.
type Recorder struct {
	storage audit.Storage
	config  *Config
	logger  *slog.Logger

	mu         sync.Mutex
	seeded     bool
	closed     bool
	nextSeq    int64
	prevDigest string
}

// NewRecorder creates a recorder on the given storage. The chain
// position is read from storage on the first append.
func NewRecorder(storage audit.Storage, config *Config) (*Recorder, error) {
	if storage == nil {
		return nil, audit.NewRecorderError("new", fmt.Errorf("storage is nil"))
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, audit.NewRecorderError("new", err)
	}
	return &Recorder{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit-recorder"),
	}, nil
}

// Record builds a record from the entry, chains it to the trail, and
// appends it. It returns the stored record. Callers must not modify
// the returned record.
func (r *Recorder) Record(ctx context.Context, entry *Entry) (*audit.Record, error) {
	if entry == nil {
		return nil, audit.NewRecorderError("record", fmt.Errorf("entry is nil"))
	}
	if entry.RequestID == "" {
		return nil, audit.NewRecorderError("record", fmt.Errorf("request id is required"))
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.WriteTimeout)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, audit.NewRecorderError("record", fmt.Errorf("recorder is closed"))
	}
	if err := r.seedLocked(ctx); err != nil {
		return nil, err
	}

	record := r.buildLocked(entry)
	digest, err := audit.ComputeDigest(record)
	if err != nil {
		return nil, audit.NewRecorderError("record", err)
	}
	record.Digest = digest

	if err := r.storage.Append(ctx, record); err != nil {
		// The append may have landed despite the error. Re-seed from
		// storage on the next record instead of trusting local state.
		r.seeded = false
		return nil, err
	}

	r.nextSeq = record.Seq + 1
	r.prevDigest = record.Digest
	return record, nil
}

// seedLocked reads the chain tail from storage. The anchor provides
// the position when the trail is empty, including after pruning.
func (r *Recorder) seedLocked(ctx context.Context) error {
	if r.seeded {
		return nil
	}

	last, err := r.storage.Last(ctx)
	if err != nil {
		return err
	}
	if last != nil {
		r.nextSeq = last.Seq + 1
		r.prevDigest = last.Digest
	} else {
		anchor, err := r.storage.Anchor(ctx)
		if err != nil {
			return err
		}
		r.nextSeq = anchor.Seq + 1
		r.prevDigest = anchor.Digest
	}
	r.seeded = true
	return nil
}

func (r *Recorder) buildLocked(entry *Entry) *audit.Record {
	now := time.Now().UTC()
	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}

	status := audit.StatusSuccess
	if !entry.Success {
		status = audit.StatusError
	}

	return &audit.Record{
		Seq:            r.nextSeq,
		ID:             uuid.NewString(),
		RequestID:      entry.RequestID,
		Timestamp:      timestamp.UTC(),
		RecordedAt:     now,
		AgentID:        entry.AgentID,
		Intent:         entry.Intent,
		SubjectKey:     entry.SubjectKey,
		PolicyDecision: entry.PolicyDecision,
		Status:         status,
		ErrorType:      entry.ErrorType,
		ErrorMessage:   entry.ErrorMessage,
		SourcesQueried: append([]string(nil), entry.SourcesQueried...),
		SourcesOmitted: append([]string(nil), entry.SourcesOmitted...),
		FieldsReturned: sortedFieldMap(entry.FieldsReturned),
		FieldsRedacted: sortedFieldMap(entry.FieldsRedacted),
		OriginalSize:   entry.OriginalSize,
		FilteredSize:   entry.FilteredSize,
		Classification: entry.Classification,
		EnvelopeDigest: entry.EnvelopeDigest,
		DurationMS:     entry.Duration.Milliseconds(),
		PrevDigest:     r.prevDigest,
	}
}

func sortedFieldMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for source, fields := range m {
		sorted := append([]string(nil), fields...)
		sort.Strings(sorted)
		out[source] = sorted
	}
	return out
}

// Close marks the recorder closed. It does not close the underlying
// storage.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
