package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/ganymede/pkg/audit"
)

// sqliteTimeFormat pads nanoseconds to nine digits so that lexical
// order on the stored text matches chronological order.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

// streamBatchSize is how many records a Stream call loads per query.
// Batches use a sequence cursor, so a stream stays consistent while
// other writes happen.
const streamBatchSize = 500

// SQLiteConfig holds configuration for SQLite audit storage.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// BusyTimeout is how long a statement waits on a locked database
	// before failing.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// DefaultSQLiteConfig returns a SQLiteConfig with sensible defaults.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "ganymede-audit.db",
		BusyTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration.
func (c *SQLiteConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busy_timeout must not be negative")
	}
	return nil
}

// SQLiteStorage is a durable audit storage backend on a single SQLite
// file with WAL journaling. It is safe for concurrent use.
type SQLiteStorage struct {
	config *SQLiteConfig
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, applies the schema, and
// verifies the schema version.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}
	// Single connection: SQLite allows one writer, and the append
	// path reads the chain tail and inserts in one transaction.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", config.BusyTimeout.Milliseconds()),
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, audit.NewStorageError("sqlite", "open", fmt.Errorf("applying %q: %w", pragma, err))
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, audit.NewStorageError("sqlite", "open", fmt.Errorf("applying schema: %w", err))
	}

	var version int
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		db.Close()
		return nil, audit.NewStorageError("sqlite", "open", fmt.Errorf("reading schema version: %w", err))
	}
	if version != SchemaVersion {
		db.Close()
		return nil, audit.NewStorageError("sqlite", "open",
			fmt.Errorf("schema version %d found, want %d", version, SchemaVersion))
	}

	storage := &SQLiteStorage{
		config: config,
		db:     db,
		logger: slog.Default().With("component", "audit-storage-sqlite"),
	}
	storage.logger.Info("opened audit database", "path", config.Path)
	return storage, nil
}

// Append stores a new record. The record's sequence must be exactly
// one past the chain tail.
func (s *SQLiteStorage) Append(ctx context.Context, record *audit.Record) error {
	if record == nil {
		return audit.NewStorageError("sqlite", "append", fmt.Errorf("record is nil"))
	}

	sourcesQueried, err := marshalStrings(record.SourcesQueried)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	sourcesOmitted, err := marshalStrings(record.SourcesOmitted)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	fieldsReturned, err := marshalFieldMap(record.FieldsReturned)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	fieldsRedacted, err := marshalFieldMap(record.FieldsRedacted)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	defer tx.Rollback()

	var lastSeq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT MAX(seq) FROM audit_records), (SELECT seq FROM chain_anchor WHERE id = 1))`,
	).Scan(&lastSeq)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	if record.Seq != lastSeq+1 {
		return audit.NewStorageError("sqlite", "append",
			fmt.Errorf("sequence %d out of order, want %d", record.Seq, lastSeq+1))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_records (
			seq, id, request_id, timestamp, recorded_at, agent_id, intent,
			subject_key, policy_decision, status, error_type, error_message,
			sources_queried, sources_omitted, fields_returned, fields_redacted,
			original_size, filtered_size, classification, envelope_digest,
			duration_ms, prev_digest, digest
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Seq,
		record.ID,
		record.RequestID,
		formatTime(record.Timestamp),
		formatTime(record.RecordedAt),
		record.AgentID,
		record.Intent,
		nullString(record.SubjectKey),
		nullString(record.PolicyDecision),
		record.Status,
		nullString(record.ErrorType),
		nullString(record.ErrorMessage),
		sourcesQueried,
		sourcesOmitted,
		fieldsReturned,
		fieldsRedacted,
		record.OriginalSize,
		record.FilteredSize,
		nullString(record.Classification),
		nullString(record.EnvelopeDigest),
		record.DurationMS,
		nullString(record.PrevDigest),
		record.Digest,
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}

	if err := tx.Commit(); err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	return nil
}

// List returns records matching the query in ascending Seq order.
func (s *SQLiteStorage) List(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	records, err := s.list(ctx, query, 0)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "list", err)
	}
	return records, nil
}

func (s *SQLiteStorage) list(ctx context.Context, query *audit.Query, afterSeq int64) ([]*audit.Record, error) {
	where, args := buildWhere(query, afterSeq)

	sqlQuery := selectColumns + " FROM audit_records" + where + " ORDER BY seq ASC"
	if query != nil && query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	} else if query != nil && query.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET.
		sqlQuery += " LIMIT -1"
	}
	if query != nil && query.Offset > 0 {
		sqlQuery += " OFFSET ?"
		args = append(args, query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*audit.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Stream returns matching records incrementally, loading them in
// sequence-cursor batches so no connection is pinned for the life of
// the stream.
func (s *SQLiteStorage) Stream(ctx context.Context, query *audit.Query) (<-chan *audit.Record, <-chan error, error) {
	if query != nil && (query.Limit > 0 || query.Offset > 0) {
		return nil, nil, audit.NewStorageError("sqlite", "stream",
			fmt.Errorf("limit and offset are not supported when streaming"))
	}

	records := make(chan *audit.Record)
	errs := make(chan error, 1)
	go func() {
		defer close(records)
		defer close(errs)

		batched := &audit.Query{Limit: streamBatchSize}
		if query != nil {
			batched.StartTime = query.StartTime
			batched.EndTime = query.EndTime
			batched.AgentID = query.AgentID
			batched.Intent = query.Intent
			batched.RequestID = query.RequestID
			batched.Status = query.Status
		}

		var cursor int64
		for {
			batch, err := s.list(ctx, batched, cursor)
			if err != nil {
				errs <- audit.NewStorageError("sqlite", "stream", err)
				return
			}
			for _, record := range batch {
				select {
				case records <- record:
				case <-ctx.Done():
					errs <- audit.NewStorageError("sqlite", "stream", ctx.Err())
					return
				}
			}
			if len(batch) < streamBatchSize {
				return
			}
			cursor = batch[len(batch)-1].Seq
		}
	}()
	return records, errs, nil
}

// Count returns the number of records matching the query.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhere(query, 0)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records"+where, args...).Scan(&count)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Last returns the record with the highest sequence, or nil when the
// trail is empty.
func (s *SQLiteStorage) Last(ctx context.Context) (*audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" FROM audit_records ORDER BY seq DESC LIMIT 1")
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "last", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	record, err := scanRecord(rows)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "last", err)
	}
	return record, nil
}

// Anchor returns the current chain anchor.
func (s *SQLiteStorage) Anchor(ctx context.Context) (audit.Anchor, error) {
	var anchor audit.Anchor
	err := s.db.QueryRowContext(ctx, "SELECT seq, digest FROM chain_anchor WHERE id = 1").
		Scan(&anchor.Seq, &anchor.Digest)
	if err != nil {
		return audit.Anchor{}, audit.NewStorageError("sqlite", "anchor", err)
	}
	return anchor, nil
}

// PruneToSeq removes every record with Seq <= seq and advances the
// anchor to the pruned boundary, in one transaction.
func (s *SQLiteStorage) PruneToSeq(ctx context.Context, seq int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "prune", err)
	}
	defer tx.Rollback()

	var anchorSeq int64
	if err := tx.QueryRowContext(ctx, "SELECT seq FROM chain_anchor WHERE id = 1").Scan(&anchorSeq); err != nil {
		return 0, audit.NewStorageError("sqlite", "prune", err)
	}
	if seq <= anchorSeq {
		return 0, nil
	}

	var lastSeq sql.NullInt64
	if err := tx.QueryRowContext(ctx, "SELECT MAX(seq) FROM audit_records").Scan(&lastSeq); err != nil {
		return 0, audit.NewStorageError("sqlite", "prune", err)
	}
	if !lastSeq.Valid || seq > lastSeq.Int64 {
		return 0, audit.NewStorageError("sqlite", "prune",
			fmt.Errorf("prune boundary %d is beyond the last record", seq))
	}

	var boundaryDigest string
	if err := tx.QueryRowContext(ctx, "SELECT digest FROM audit_records WHERE seq = ?", seq).Scan(&boundaryDigest); err != nil {
		return 0, audit.NewStorageError("sqlite", "prune", fmt.Errorf("reading boundary record: %w", err))
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM audit_records WHERE seq <= ?", seq)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "prune", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "prune", err)
	}

	_, err = tx.ExecContext(ctx, "UPDATE chain_anchor SET seq = ?, digest = ? WHERE id = 1", seq, boundaryDigest)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "prune", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, audit.NewStorageError("sqlite", "prune", err)
	}

	s.logger.Info("pruned audit records", "removed", removed, "anchor_seq", seq)
	return removed, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	return nil
}

const selectColumns = `SELECT
	seq, id, request_id, timestamp, recorded_at, agent_id, intent,
	subject_key, policy_decision, status, error_type, error_message,
	sources_queried, sources_omitted, fields_returned, fields_redacted,
	original_size, filtered_size, classification, envelope_digest,
	duration_ms, prev_digest, digest`

func buildWhere(query *audit.Query, afterSeq int64) (string, []any) {
	var conditions []string
	var args []any

	if afterSeq > 0 {
		conditions = append(conditions, "seq > ?")
		args = append(args, afterSeq)
	}
	if query != nil {
		if query.StartTime != nil {
			conditions = append(conditions, "timestamp >= ?")
			args = append(args, formatTime(*query.StartTime))
		}
		if query.EndTime != nil {
			conditions = append(conditions, "timestamp < ?")
			args = append(args, formatTime(*query.EndTime))
		}
		if query.AgentID != "" {
			conditions = append(conditions, "agent_id = ?")
			args = append(args, query.AgentID)
		}
		if query.Intent != "" {
			conditions = append(conditions, "intent = ?")
			args = append(args, query.Intent)
		}
		if query.RequestID != "" {
			conditions = append(conditions, "request_id = ?")
			args = append(args, query.RequestID)
		}
		if query.Status != "" {
			conditions = append(conditions, "status = ?")
			args = append(args, query.Status)
		}
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var (
		record         audit.Record
		timestamp      string
		recordedAt     string
		subjectKey     sql.NullString
		policyDecision sql.NullString
		errorType      sql.NullString
		errorMessage   sql.NullString
		sourcesQueried sql.NullString
		sourcesOmitted sql.NullString
		fieldsReturned sql.NullString
		fieldsRedacted sql.NullString
		classification sql.NullString
		envelopeDigest sql.NullString
		prevDigest     sql.NullString
	)

	err := rows.Scan(
		&record.Seq,
		&record.ID,
		&record.RequestID,
		&timestamp,
		&recordedAt,
		&record.AgentID,
		&record.Intent,
		&subjectKey,
		&policyDecision,
		&record.Status,
		&errorType,
		&errorMessage,
		&sourcesQueried,
		&sourcesOmitted,
		&fieldsReturned,
		&fieldsRedacted,
		&record.OriginalSize,
		&record.FilteredSize,
		&classification,
		&envelopeDigest,
		&record.DurationMS,
		&prevDigest,
		&record.Digest,
	)
	if err != nil {
		return nil, err
	}

	if record.Timestamp, err = parseTime(timestamp); err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}
	if record.RecordedAt, err = parseTime(recordedAt); err != nil {
		return nil, fmt.Errorf("parsing recorded_at: %w", err)
	}
	record.SubjectKey = subjectKey.String
	record.PolicyDecision = policyDecision.String
	record.ErrorType = errorType.String
	record.ErrorMessage = errorMessage.String
	record.Classification = classification.String
	record.EnvelopeDigest = envelopeDigest.String
	record.PrevDigest = prevDigest.String

	if record.SourcesQueried, err = unmarshalStrings(sourcesQueried); err != nil {
		return nil, fmt.Errorf("parsing sources_queried: %w", err)
	}
	if record.SourcesOmitted, err = unmarshalStrings(sourcesOmitted); err != nil {
		return nil, fmt.Errorf("parsing sources_omitted: %w", err)
	}
	if record.FieldsReturned, err = unmarshalFieldMap(fieldsReturned); err != nil {
		return nil, fmt.Errorf("parsing fields_returned: %w", err)
	}
	if record.FieldsRedacted, err = unmarshalFieldMap(fieldsRedacted); err != nil {
		return nil, fmt.Errorf("parsing fields_redacted: %w", err)
	}
	return &record, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalStrings(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func unmarshalStrings(value sql.NullString) ([]string, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(value.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func marshalFieldMap(m map[string][]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func unmarshalFieldMap(value sql.NullString) (map[string][]string, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	var out map[string][]string
	if err := json.Unmarshal([]byte(value.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}
