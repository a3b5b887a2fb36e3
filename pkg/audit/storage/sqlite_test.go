package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/audit"
)

func newSQLiteTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "audit.db")
	store, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage_RoundTrip(t *testing.T) {
	store := newSQLiteTestStorage(t)
	ctx := context.Background()

	record := &audit.Record{
		Seq:            1,
		ID:             "rec-001",
		RequestID:      "req-001",
		Timestamp:      time.Date(2025, 6, 15, 10, 30, 0, 123456789, time.UTC),
		RecordedAt:     time.Date(2025, 6, 15, 10, 30, 0, 223456789, time.UTC),
		AgentID:        "agent-underwriter-7",
		Intent:         "loan_assessment",
		SubjectKey:     "CUST-001",
		PolicyDecision: "loan_assessment@3",
		Status:         audit.StatusSuccess,
		SourcesQueried: []string{"crm", "credit_bureau"},
		SourcesOmitted: []string{"transactions"},
		FieldsReturned: map[string][]string{
			"crm":           {"account_standing", "name"},
			"credit_bureau": {"score"},
		},
		FieldsRedacted: map[string][]string{
			"crm": {"internal_notes", "ssn"},
		},
		OriginalSize:   2048,
		FilteredSize:   512,
		Classification: "confidential",
		EnvelopeDigest: "0f3a",
		DurationMS:     42,
		PrevDigest:     "",
		Digest:         "aa11",
	}
	if err := store.Append(ctx, record); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := store.List(ctx, nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	if !reflect.DeepEqual(records[0], record) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", records[0], record)
	}
}

func TestSQLiteStorage_RoundTripSparseRecord(t *testing.T) {
	store := newSQLiteTestStorage(t)
	ctx := context.Background()

	// An error record carries no envelope, sources, or field maps.
	record := &audit.Record{
		Seq:          1,
		ID:           "rec-001",
		RequestID:    "req-001",
		Timestamp:    time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		RecordedAt:   time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		AgentID:      "agent-underwriter-7",
		Intent:       "loan_assessment",
		Status:       audit.StatusError,
		ErrorType:    "policy_violation",
		ErrorMessage: "intent not allowed for agent",
		DurationMS:   3,
		Digest:       "bb22",
	}
	if err := store.Append(ctx, record); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := store.List(ctx, nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !reflect.DeepEqual(records[0], record) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", records[0], record)
	}
}

func sqliteSeed(t *testing.T, store *SQLiteStorage, n int64) {
	t.Helper()
	for seq := int64(1); seq <= n; seq++ {
		record := memRecord(seq)
		if err := store.Append(context.Background(), record); err != nil {
			t.Fatalf("Append(seq=%d) error = %v", seq, err)
		}
	}
}

func TestSQLiteStorage_AppendEnforcesOrder(t *testing.T) {
	store := newSQLiteTestStorage(t)
	ctx := context.Background()

	if err := store.Append(ctx, memRecord(5)); err == nil {
		t.Error("appending seq 5 to an empty trail succeeded, want error")
	}
	sqliteSeed(t, store, 2)
	if err := store.Append(ctx, memRecord(2)); err == nil {
		t.Error("duplicate seq accepted, want error")
	}
	if err := store.Append(ctx, memRecord(4)); err == nil {
		t.Error("gap accepted, want error")
	}
}

func TestSQLiteStorage_QueryFilters(t *testing.T) {
	store := newSQLiteTestStorage(t)
	ctx := context.Background()
	sqliteSeed(t, store, 5)

	other := memRecord(6)
	other.AgentID = "agent-reviewer-2"
	other.Status = audit.StatusError
	if err := store.Append(ctx, other); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	t.Run("agent filter", func(t *testing.T) {
		records, err := store.List(ctx, &audit.Query{AgentID: "agent-reviewer-2"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(records) != 1 || records[0].Seq != 6 {
			t.Errorf("got %v, want only seq 6", seqsOf(records))
		}
	})

	t.Run("time window", func(t *testing.T) {
		start := time.Date(2025, 6, 15, 10, 2, 0, 0, time.UTC)
		end := time.Date(2025, 6, 15, 10, 4, 0, 0, time.UTC)
		records, err := store.List(ctx, &audit.Query{StartTime: &start, EndTime: &end})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if !reflect.DeepEqual(seqsOf(records), []int64{2, 3}) {
			t.Errorf("window records = %v, want [2 3]", seqsOf(records))
		}
	})

	t.Run("limit offset", func(t *testing.T) {
		records, err := store.List(ctx, &audit.Query{Limit: 2, Offset: 3})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if !reflect.DeepEqual(seqsOf(records), []int64{4, 5}) {
			t.Errorf("window records = %v, want [4 5]", seqsOf(records))
		}
	})

	t.Run("offset without limit", func(t *testing.T) {
		records, err := store.List(ctx, &audit.Query{Offset: 4})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if !reflect.DeepEqual(seqsOf(records), []int64{5, 6}) {
			t.Errorf("window records = %v, want [5 6]", seqsOf(records))
		}
	})

	t.Run("count ignores window", func(t *testing.T) {
		count, err := store.Count(ctx, &audit.Query{Status: audit.StatusSuccess, Limit: 1})
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != 5 {
			t.Errorf("Count = %d, want 5", count)
		}
	})
}

func TestSQLiteStorage_LastAndAnchor(t *testing.T) {
	store := newSQLiteTestStorage(t)
	ctx := context.Background()

	last, err := store.Last(ctx)
	if err != nil {
		t.Fatalf("Last() error = %v", err)
	}
	if last != nil {
		t.Errorf("Last() on empty trail = %+v, want nil", last)
	}

	anchor, err := store.Anchor(ctx)
	if err != nil {
		t.Fatalf("Anchor() error = %v", err)
	}
	if anchor.Seq != 0 || anchor.Digest != "" {
		t.Errorf("initial anchor = %+v, want zero", anchor)
	}

	sqliteSeed(t, store, 3)
	last, err = store.Last(ctx)
	if err != nil {
		t.Fatalf("Last() error = %v", err)
	}
	if last == nil || last.Seq != 3 {
		t.Errorf("Last() = %+v, want seq 3", last)
	}
}

func TestSQLiteStorage_Stream(t *testing.T) {
	store := newSQLiteTestStorage(t)
	sqliteSeed(t, store, 7)

	records, errs, err := store.Stream(context.Background(), nil)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	var seqs []int64
	for record := range records {
		seqs = append(seqs, record.Seq)
	}
	if err := <-errs; err != nil {
		t.Fatalf("stream error = %v", err)
	}
	if !reflect.DeepEqual(seqs, []int64{1, 2, 3, 4, 5, 6, 7}) {
		t.Errorf("streamed seqs = %v", seqs)
	}

	if _, _, err := store.Stream(context.Background(), &audit.Query{Limit: 1}); err == nil {
		t.Error("Stream with limit succeeded, want error")
	}
}

func TestSQLiteStorage_PruneToSeq(t *testing.T) {
	store := newSQLiteTestStorage(t)
	ctx := context.Background()
	sqliteSeed(t, store, 5)

	removed, err := store.PruneToSeq(ctx, 3)
	if err != nil {
		t.Fatalf("PruneToSeq(3) error = %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}

	anchor, err := store.Anchor(ctx)
	if err != nil {
		t.Fatalf("Anchor() error = %v", err)
	}
	if anchor.Seq != 3 || anchor.Digest != "digest-003" {
		t.Errorf("anchor = %+v, want seq 3 digest digest-003", anchor)
	}

	if _, err := store.PruneToSeq(ctx, 2); err != nil {
		t.Errorf("PruneToSeq below anchor error = %v, want no-op", err)
	}
	if _, err := store.PruneToSeq(ctx, 42); err == nil {
		t.Error("PruneToSeq beyond last record succeeded, want error")
	}
}

func TestSQLiteStorage_PersistsAcrossReopen(t *testing.T) {
	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "audit.db")

	store, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	sqliteSeed(t, store, 3)
	if _, err := store.PruneToSeq(context.Background(), 1); err != nil {
		t.Fatalf("PruneToSeq() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	ctx := context.Background()
	count, err := reopened.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count after reopen = %d, want 2", count)
	}

	anchor, err := reopened.Anchor(ctx)
	if err != nil {
		t.Fatalf("Anchor() error = %v", err)
	}
	if anchor.Seq != 1 || anchor.Digest != "digest-001" {
		t.Errorf("anchor after reopen = %+v", anchor)
	}

	if err := reopened.Append(ctx, memRecord(4)); err != nil {
		t.Errorf("Append after reopen error = %v", err)
	}
}

func TestSQLiteConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SQLiteConfig)
		wantErr bool
	}{
		{"defaults valid", func(c *SQLiteConfig) {}, false},
		{"missing path", func(c *SQLiteConfig) { c.Path = "" }, true},
		{"negative busy timeout", func(c *SQLiteConfig) { c.BusyTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultSQLiteConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSQLiteTimeFormatOrdersLexically(t *testing.T) {
	times := []time.Time{
		time.Date(2025, 6, 15, 10, 0, 0, 500000000, time.UTC),
		time.Date(2025, 6, 15, 10, 0, 0, 510000000, time.UTC),
		time.Date(2025, 6, 15, 10, 0, 1, 0, time.UTC),
	}
	for i := 1; i < len(times); i++ {
		a, b := formatTime(times[i-1]), formatTime(times[i])
		if !(a < b) {
			t.Errorf("formatTime ordering broken: %q !< %q", a, b)
		}
	}

	parsed, err := parseTime(formatTime(times[0]))
	if err != nil {
		t.Fatalf("parseTime() error = %v", err)
	}
	if !parsed.Equal(times[0]) {
		t.Errorf("parse(format(t)) = %v, want %v", parsed, times[0])
	}
}

func TestSQLiteStorage_AppendRejectsNil(t *testing.T) {
	store := newSQLiteTestStorage(t)

	err := store.Append(context.Background(), nil)
	var storageErr *audit.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("error = %v, want StorageError", err)
	}
	if storageErr.Backend != "sqlite" || storageErr.Operation != "append" {
		t.Errorf("error fields = %+v", storageErr)
	}
}

var _ audit.Storage = (*SQLiteStorage)(nil)
var _ audit.Storage = (*MemoryStorage)(nil)
