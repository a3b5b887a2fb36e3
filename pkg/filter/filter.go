package filter

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Result is the filtered projection of one source payload.
type Result struct {
	// Source is the policy's name for the source.
	Source string

	// Payload holds exactly the allow-listed fields present in the
	// raw record. Never nil.
	Payload map[string]any

	// Removed lists the raw fields the allow-list stripped, sorted.
	Removed []string
}

// Apply projects data onto the allow-list. The returned map contains
// exactly the intersection of allowed and present fields; the string
// slice lists every stripped field in sorted order.
//
// An allow-listed field absent from data is simply absent from the
// result. Fields are matched by exact top-level key.
func Apply(data map[string]any, allowed []string) (map[string]any, []string) {
	allowSet := make(map[string]struct{}, len(allowed))
	for _, field := range allowed {
		allowSet[field] = struct{}{}
	}

	filtered := make(map[string]any, len(allowSet))
	var removed []string
	for field, value := range data {
		if _, ok := allowSet[field]; ok {
			filtered[field] = value
		} else {
			removed = append(removed, field)
		}
	}
	sort.Strings(removed)

	return filtered, removed
}

// ApplyToSource builds the Result for one source.
func ApplyToSource(sourceName string, data map[string]any, allowed []string) Result {
	filtered, removed := Apply(data, allowed)
	return Result{
		Source:  sourceName,
		Payload: filtered,
		Removed: removed,
	}
}

// RedactedUnion returns the union of removed fields across results,
// deduplicated and sorted.
func RedactedUnion(results []Result) []string {
	seen := make(map[string]struct{})
	for i := range results {
		for _, field := range results[i].Removed {
			seen[field] = struct{}{}
		}
	}
	union := make([]string, 0, len(seen))
	for field := range seen {
		union = append(union, field)
	}
	sort.Strings(union)
	return union
}

// EncodedSize returns the JSON-encoded byte size of v.
func EncodedSize(v any) (int64, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("failed to measure encoded size: %w", err)
	}
	return int64(len(encoded)), nil
}

// Sizes aggregates the byte sizes of the raw records and their
// filtered projections, used for the envelope's size accounting.
func Sizes(raw map[string]map[string]any, results []Result) (original int64, filtered int64, err error) {
	for sourceName, data := range raw {
		size, err := EncodedSize(data)
		if err != nil {
			return 0, 0, fmt.Errorf("source %s: %w", sourceName, err)
		}
		original += size
	}
	for i := range results {
		size, err := EncodedSize(results[i].Payload)
		if err != nil {
			return 0, 0, fmt.Errorf("source %s: %w", results[i].Source, err)
		}
		filtered += size
	}
	return original, filtered, nil
}
