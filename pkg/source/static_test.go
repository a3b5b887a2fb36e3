package source

import (
	"context"
	"errors"
	"testing"
)

func TestStaticFetcher_Fetch(t *testing.T) {
	fetcher := NewStaticFetcher("customer", map[string]map[string]any{
		"CUST-001": {
			"name":           "Jane Doe",
			"ssn":            "123-45-6789",
			"annual_income":  85000,
			"internal_notes": "flagged for review",
		},
	})

	payload, err := fetcher.Fetch(context.Background(), "CUST-001")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if payload.Source != "customer" {
		t.Errorf("Expected source customer, got %s", payload.Source)
	}
	if payload.Cached {
		t.Error("Static payload should not be marked cached")
	}
	if payload.FetchedAt.IsZero() {
		t.Error("Expected FetchedAt to be set")
	}
	if payload.Data["name"] != "Jane Doe" {
		t.Errorf("Unexpected name: %v", payload.Data["name"])
	}
	if len(payload.Data) != 4 {
		t.Errorf("Expected 4 fields, got %d", len(payload.Data))
	}
}

func TestStaticFetcher_UnknownKey(t *testing.T) {
	fetcher := NewStaticFetcher("customer", nil)

	_, err := fetcher.Fetch(context.Background(), "CUST-404")
	if err == nil {
		t.Fatal("Expected error for unknown key")
	}
	if !IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %T: %v", err, err)
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected *NotFoundError, got %T", err)
	}
	if nf.Source != "customer" || nf.Key != "CUST-404" {
		t.Errorf("Unexpected error fields: %+v", nf)
	}
}

func TestStaticFetcher_CopyIsolation(t *testing.T) {
	seed := map[string]map[string]any{
		"CUST-001": {"name": "Jane Doe"},
	}
	fetcher := NewStaticFetcher("customer", seed)

	// Mutating the seed after construction must not affect the fetcher.
	seed["CUST-001"]["name"] = "mutated"

	payload, err := fetcher.Fetch(context.Background(), "CUST-001")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if payload.Data["name"] != "Jane Doe" {
		t.Errorf("Seed mutation leaked into fetcher: %v", payload.Data["name"])
	}

	// Mutating a returned payload must not affect later fetches.
	payload.Data["name"] = "mutated"

	again, err := fetcher.Fetch(context.Background(), "CUST-001")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if again.Data["name"] != "Jane Doe" {
		t.Errorf("Payload mutation leaked into fetcher: %v", again.Data["name"])
	}
}

func TestStaticFetcher_SetAndRemove(t *testing.T) {
	fetcher := NewStaticFetcher("customer", nil)
	fetcher.Set("CUST-002", map[string]any{"name": "John Smith"})

	payload, err := fetcher.Fetch(context.Background(), "CUST-002")
	if err != nil {
		t.Fatalf("Fetch after Set failed: %v", err)
	}
	if payload.Data["name"] != "John Smith" {
		t.Errorf("Unexpected name: %v", payload.Data["name"])
	}

	fetcher.Remove("CUST-002")
	if _, err := fetcher.Fetch(context.Background(), "CUST-002"); !IsNotFound(err) {
		t.Errorf("Expected NotFoundError after Remove, got %v", err)
	}
}

func TestStaticFetcher_CancelledContext(t *testing.T) {
	fetcher := NewStaticFetcher("customer", map[string]map[string]any{
		"CUST-001": {"name": "Jane Doe"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fetcher.Fetch(ctx, "CUST-001"); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestPayload_Clone(t *testing.T) {
	original := &Payload{
		Source: "customer",
		Data:   map[string]any{"name": "Jane Doe"},
	}

	clone := original.Clone()
	clone.Data["name"] = "mutated"

	if original.Data["name"] != "Jane Doe" {
		t.Error("Clone shares top-level data map with original")
	}
}
