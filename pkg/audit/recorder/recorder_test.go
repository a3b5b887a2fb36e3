package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/audit/storage"
)

func testEntry(requestID string) *Entry {
	return &Entry{
		RequestID:      requestID,
		Timestamp:      time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		AgentID:        "agent-underwriter-7",
		Intent:         "loan_assessment",
		SubjectKey:     "CUST-001",
		PolicyDecision: "loan_assessment@3",
		Success:        true,
		SourcesQueried: []string{"crm", "credit_bureau"},
		FieldsReturned: map[string][]string{"crm": {"name", "account_standing"}},
		FieldsRedacted: map[string][]string{"crm": {"ssn", "internal_notes"}},
		OriginalSize:   2048,
		FilteredSize:   512,
		Classification: "confidential",
		EnvelopeDigest: "0f3a",
		Duration:       42 * time.Millisecond,
	}
}

func TestRecorder_ChainsRecords(t *testing.T) {
	store := storage.NewMemoryStorage(nil)
	defer store.Close()
	rec, err := NewRecorder(store, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	ctx := context.Background()

	first, err := rec.Record(ctx, testEntry("req-001"))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	second, err := rec.Record(ctx, testEntry("req-002"))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("sequences = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.PrevDigest != "" {
		t.Errorf("first PrevDigest = %q, want empty genesis link", first.PrevDigest)
	}
	if second.PrevDigest != first.Digest {
		t.Errorf("second PrevDigest = %q, want first digest %q", second.PrevDigest, first.Digest)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Errorf("record ids not unique: %q, %q", first.ID, second.ID)
	}

	result, err := audit.VerifyChain(ctx, store)
	if err != nil {
		t.Fatalf("VerifyChain() error = %v", err)
	}
	if !result.Intact {
		t.Errorf("recorded chain not intact: %v", result.Failure)
	}
}

func TestRecorder_RecordFields(t *testing.T) {
	store := storage.NewMemoryStorage(nil)
	defer store.Close()
	rec, err := NewRecorder(store, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	record, err := rec.Record(context.Background(), testEntry("req-001"))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if record.Status != audit.StatusSuccess {
		t.Errorf("Status = %q, want success", record.Status)
	}
	if record.DurationMS != 42 {
		t.Errorf("DurationMS = %d, want 42", record.DurationMS)
	}
	if record.RecordedAt.IsZero() {
		t.Error("RecordedAt not set")
	}
	if got := record.FieldsReturned["crm"]; len(got) != 2 || got[0] != "account_standing" || got[1] != "name" {
		t.Errorf("FieldsReturned not sorted: %v", got)
	}
	if got := record.FieldsRedacted["crm"]; len(got) != 2 || got[0] != "internal_notes" || got[1] != "ssn" {
		t.Errorf("FieldsRedacted not sorted: %v", got)
	}
}

func TestRecorder_ErrorEntry(t *testing.T) {
	store := storage.NewMemoryStorage(nil)
	defer store.Close()
	rec, err := NewRecorder(store, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	entry := &Entry{
		RequestID:    "req-007",
		AgentID:      "agent-underwriter-7",
		Intent:       "bulk_export",
		Success:      false,
		ErrorType:    "policy_violation",
		ErrorMessage: "intent not allowed for agent",
		Duration:     3 * time.Millisecond,
	}
	record, err := rec.Record(context.Background(), entry)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if record.Status != audit.StatusError {
		t.Errorf("Status = %q, want error", record.Status)
	}
	if record.ErrorType != "policy_violation" {
		t.Errorf("ErrorType = %q", record.ErrorType)
	}
	if record.Timestamp.IsZero() {
		t.Error("zero entry timestamp was not defaulted")
	}
	if record.EnvelopeDigest != "" {
		t.Errorf("EnvelopeDigest = %q on an error record", record.EnvelopeDigest)
	}
}

func TestRecorder_ResumesExistingTrail(t *testing.T) {
	store := storage.NewMemoryStorage(nil)
	defer store.Close()
	ctx := context.Background()

	first, err := NewRecorder(store, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	tail, err := first.Record(ctx, testEntry("req-001"))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	first.Close()

	// A new recorder on the same storage picks up where the trail
	// ends, as after a restart.
	second, err := NewRecorder(store, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	next, err := second.Record(ctx, testEntry("req-002"))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if next.Seq != tail.Seq+1 {
		t.Errorf("Seq = %d, want %d", next.Seq, tail.Seq+1)
	}
	if next.PrevDigest != tail.Digest {
		t.Errorf("PrevDigest = %q, want %q", next.PrevDigest, tail.Digest)
	}
}

func TestRecorder_ResumesFromAnchorAfterPrune(t *testing.T) {
	store := storage.NewMemoryStorage(nil)
	defer store.Close()
	ctx := context.Background()

	rec, err := NewRecorder(store, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	var tail *audit.Record
	for _, id := range []string{"req-001", "req-002", "req-003"} {
		if tail, err = rec.Record(ctx, testEntry(id)); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	rec.Close()

	if _, err := store.PruneToSeq(ctx, tail.Seq); err != nil {
		t.Fatalf("PruneToSeq() error = %v", err)
	}

	resumed, err := NewRecorder(store, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	next, err := resumed.Record(ctx, testEntry("req-004"))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if next.Seq != tail.Seq+1 {
		t.Errorf("Seq = %d, want %d", next.Seq, tail.Seq+1)
	}
	if next.PrevDigest != tail.Digest {
		t.Errorf("PrevDigest = %q, want anchor digest %q", next.PrevDigest, tail.Digest)
	}

	result, err := audit.VerifyChain(ctx, store)
	if err != nil {
		t.Fatalf("VerifyChain() error = %v", err)
	}
	if !result.Intact {
		t.Errorf("chain not intact after prune and resume: %v", result.Failure)
	}
}

func TestRecorder_AppendFailureSurfaces(t *testing.T) {
	store := storage.NewMemoryStorage(&storage.MemoryConfig{MaxRecords: 1})
	defer store.Close()
	rec, err := NewRecorder(store, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	ctx := context.Background()

	if _, err := rec.Record(ctx, testEntry("req-001")); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	_, err = rec.Record(ctx, testEntry("req-002"))
	var storageErr *audit.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Record() error = %v, want StorageError when the trail cannot grow", err)
	}
}

func TestRecorder_Validation(t *testing.T) {
	store := storage.NewMemoryStorage(nil)
	defer store.Close()

	if _, err := NewRecorder(nil, nil); err == nil {
		t.Error("NewRecorder(nil storage) succeeded")
	}
	if _, err := NewRecorder(store, &Config{WriteTimeout: 0}); err == nil {
		t.Error("NewRecorder with zero write timeout succeeded")
	}

	rec, err := NewRecorder(store, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	if _, err := rec.Record(context.Background(), nil); err == nil {
		t.Error("Record(nil entry) succeeded")
	}
	if _, err := rec.Record(context.Background(), &Entry{}); err == nil {
		t.Error("Record without request id succeeded")
	}

	rec.Close()
	if _, err := rec.Record(context.Background(), testEntry("req-009")); err == nil {
		t.Error("Record on closed recorder succeeded")
	}
}

func TestRecorder_EntryIsolation(t *testing.T) {
	store := storage.NewMemoryStorage(nil)
	defer store.Close()
	rec, err := NewRecorder(store, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	entry := testEntry("req-001")
	record, err := rec.Record(context.Background(), entry)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entry.SourcesQueried[0] = "mutated"
	entry.FieldsReturned["crm"][0] = "mutated"

	if record.SourcesQueried[0] != "crm" {
		t.Error("record shares SourcesQueried with the entry")
	}
	if record.FieldsReturned["crm"][0] != "account_standing" {
		t.Error("record shares FieldsReturned with the entry")
	}
}
