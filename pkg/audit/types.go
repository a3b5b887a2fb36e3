package audit

import (
	"context"
	"io"
	"time"
)

// Status values recorded on a Record.
const (
	// StatusSuccess marks a request that produced a context envelope.
	StatusSuccess = "success"

	// StatusError marks a request that was refused or failed.
	StatusError = "error"
)

// Record is one audit trail entry. A record is written for every
// request that reaches policy evaluation, whether or not it succeeds,
// and is immutable once appended.
//
// Seq, PrevDigest, and Digest are assigned by the recorder; callers
// populate the rest.
type Record struct {
	// Seq is the position of the record in the chain, starting at 1.
	// Assigned by the recorder, strictly increasing with no gaps.
	Seq int64 `json:"seq"`

	// ID is a unique identifier for the record.
	ID string `json:"id"`

	// RequestID ties the record to the request that produced it and to
	// the envelope's provenance block.
	RequestID string `json:"request_id"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`

	// RecordedAt is when the record was appended to the trail.
	RecordedAt time.Time `json:"recorded_at"`

	// AgentID identifies the calling agent.
	AgentID string `json:"agent_id"`

	// Intent is the declared purpose of the request.
	Intent string `json:"intent"`

	// SubjectKey is the key the request asked about.
	SubjectKey string `json:"subject_key,omitempty"`

	// PolicyDecision names the policy that governed the request in
	// "intent@version" form. Empty when the request was refused before
	// a policy matched.
	PolicyDecision string `json:"policy_decision,omitempty"`

	// Status is StatusSuccess or StatusError.
	Status string `json:"status"`

	// ErrorType and ErrorMessage describe the failure for error
	// records. Both are empty on success.
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// SourcesQueried lists the sources the policy directed the request
	// to, in policy order. SourcesOmitted lists the optional sources
	// that failed and were left out of the envelope.
	SourcesQueried []string `json:"sources_queried,omitempty"`
	SourcesOmitted []string `json:"sources_omitted,omitempty"`

	// FieldsReturned and FieldsRedacted record, per source, which
	// fields were released and which were withheld. Field names are
	// sorted within each source.
	FieldsReturned map[string][]string `json:"fields_returned,omitempty"`
	FieldsRedacted map[string][]string `json:"fields_redacted,omitempty"`

	// OriginalSize and FilteredSize are the payload byte counts before
	// and after filtering, as reported in the envelope.
	OriginalSize int64 `json:"original_size,omitempty"`
	FilteredSize int64 `json:"filtered_size,omitempty"`

	// Classification is the data classification of the released
	// envelope, from the policy.
	Classification string `json:"classification,omitempty"`

	// EnvelopeDigest is the digest of the envelope released for this
	// request. Empty on error records.
	EnvelopeDigest string `json:"envelope_digest,omitempty"`

	// DurationMS is the request wall time in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// PrevDigest is the digest of the previous record in the chain,
	// or the anchor digest for the first record after the anchor.
	PrevDigest string `json:"prev_digest,omitempty"`

	// Digest is the SHA-256 hex digest of this record's canonical
	// form, computed with the Digest field empty.
	Digest string `json:"digest"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if r.SourcesQueried != nil {
		clone.SourcesQueried = append([]string(nil), r.SourcesQueried...)
	}
	if r.SourcesOmitted != nil {
		clone.SourcesOmitted = append([]string(nil), r.SourcesOmitted...)
	}
	clone.FieldsReturned = cloneFieldMap(r.FieldsReturned)
	clone.FieldsRedacted = cloneFieldMap(r.FieldsRedacted)
	return &clone
}

func cloneFieldMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Anchor marks where chain verification starts. The zero Anchor is
// the genesis anchor: the first record has Seq 1 and an empty
// PrevDigest. After pruning, the anchor holds the sequence and digest
// of the last pruned record.
type Anchor struct {
	Seq    int64  `json:"seq"`
	Digest string `json:"digest"`
}

// Query selects records from storage. Zero-value fields match
// everything. Results are always returned in ascending Seq order.
type Query struct {
	// StartTime and EndTime bound the record Timestamp. StartTime is
	// inclusive, EndTime exclusive.
	StartTime *time.Time
	EndTime   *time.Time

	// AgentID, Intent, and RequestID match records exactly.
	AgentID   string
	Intent    string
	RequestID string

	// Status filters by StatusSuccess or StatusError.
	Status string

	// Limit caps the number of records returned; zero means no limit.
	// Offset skips records after filtering.
	Limit  int
	Offset int
}

// Matches reports whether the record satisfies every set filter.
func (q *Query) Matches(r *Record) bool {
	if q == nil {
		return true
	}
	if q.StartTime != nil && r.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && !r.Timestamp.Before(*q.EndTime) {
		return false
	}
	if q.AgentID != "" && r.AgentID != q.AgentID {
		return false
	}
	if q.Intent != "" && r.Intent != q.Intent {
		return false
	}
	if q.RequestID != "" && r.RequestID != q.RequestID {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	return true
}

// Storage persists audit records. Implementations are append-only:
// records are never updated, and the only sanctioned removal is
// PruneToSeq, which advances the chain anchor in the same operation.
type Storage interface {
	// Append stores a new record. The record's Seq must not already
	// exist.
	Append(ctx context.Context, record *Record) error

	// List returns records matching the query in ascending Seq order.
	List(ctx context.Context, query *Query) ([]*Record, error)

	// Stream returns records matching the query incrementally, for
	// result sets too large to hold in memory. Records arrive in
	// ascending Seq order. The error channel delivers at most one
	// error; both channels are closed when the stream ends.
	Stream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of records matching the query,
	// ignoring Limit and Offset.
	Count(ctx context.Context, query *Query) (int64, error)

	// Last returns the record with the highest Seq, or nil when the
	// trail is empty.
	Last(ctx context.Context) (*Record, error)

	// Anchor returns the current chain anchor.
	Anchor(ctx context.Context) (Anchor, error)

	// PruneToSeq removes every record with Seq <= seq and advances
	// the anchor to the pruned boundary, atomically. It returns the
	// number of records removed. Pruning past the last record is an
	// error; pruning below the current anchor is a no-op.
	PruneToSeq(ctx context.Context, seq int64) (int64, error)

	// Close releases storage resources.
	Close() error
}

// Exporter writes records to an output stream in a serialization
// format, for compliance handoff.
type Exporter interface {
	// Export writes all records matching the query.
	Export(ctx context.Context, storage Storage, query *Query, w io.Writer) error

	// Format returns the name of the export format.
	Format() string
}
