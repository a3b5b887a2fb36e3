package envelope

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"

	"mercator-hq/ganymede/pkg/filter"
	"mercator-hq/ganymede/pkg/identity"
	"mercator-hq/ganymede/pkg/policy"
)

// SourceInput carries one source's contribution into the builder.
type SourceInput struct {
	// Name is the policy's name for the source.
	Name string

	// Freshness echoes the policy's freshness declaration.
	Freshness string

	// Raw is the unfiltered record, used for size accounting.
	Raw map[string]any

	// Filtered is the allow-list projection of Raw.
	Filtered filter.Result

	// FetchedAt and Cached come from the fetched payload.
	FetchedAt time.Time
	Cached    bool

	// Omitted marks an optional source that failed. Raw and Filtered
	// are ignored for omitted sources.
	Omitted bool
}

// BuildInput is everything envelope assembly needs.
type BuildInput struct {
	RequestID string
	Timestamp time.Time
	Agent     identity.Snapshot
	Decision  *policy.Decision

	// Sources must be in policy order.
	Sources []SourceInput
}

// Build assembles and digests a context envelope.
func Build(input BuildInput) (*ContextEnvelope, error) {
	if input.RequestID == "" {
		return nil, fmt.Errorf("request id cannot be empty")
	}
	if input.Agent.AgentID == "" {
		return nil, fmt.Errorf("agent snapshot cannot be empty")
	}
	if input.Decision == nil {
		return nil, fmt.Errorf("policy decision cannot be nil")
	}
	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	payload := make(map[string]map[string]any, len(input.Sources))
	sources := make([]SourceProvenance, 0, len(input.Sources))
	filtered := make([]filter.Result, 0, len(input.Sources))
	raw := make(map[string]map[string]any, len(input.Sources))

	for _, src := range input.Sources {
		if src.Omitted {
			sources = append(sources, SourceProvenance{
				Service:   src.Name,
				Freshness: src.Freshness,
				Omitted:   true,
			})
			continue
		}

		payload[src.Name] = src.Filtered.Payload
		filtered = append(filtered, src.Filtered)
		raw[src.Name] = src.Raw

		fetchedAt := src.FetchedAt.UTC()
		sources = append(sources, SourceProvenance{
			Service:   src.Name,
			Freshness: src.Freshness,
			FetchedAt: &fetchedAt,
			Cached:    src.Cached,
			Filtered:  true,
		})
	}

	originalSize, filteredSize, err := filter.Sizes(raw, filtered)
	if err != nil {
		return nil, fmt.Errorf("failed to compute envelope sizes: %w", err)
	}

	env := &ContextEnvelope{
		Payload: payload,
		Provenance: Provenance{
			RequestID:      input.RequestID,
			Timestamp:      timestamp.UTC(),
			Sources:        sources,
			PolicyDecision: input.Decision.Summary(),
			OriginalSize:   originalSize,
			FilteredSize:   filteredSize,
			Agent:          input.Agent,
		},
		Constraints: Constraints{
			TTLSeconds:         input.Decision.TTLSeconds,
			PermittedActions:   append([]string(nil), input.Decision.PermittedActions...),
			RedactedFields:     filter.RedactedUnion(filtered),
			DataClassification: input.Decision.Classification,
		},
	}

	digest, err := ComputeDigest(env)
	if err != nil {
		return nil, err
	}
	env.Provenance.Digest = digest

	return env, nil
}

// ComputeDigest returns the hex SHA-256 of the envelope's RFC 8785
// canonical JSON form, with the embedded digest field empty.
func ComputeDigest(env *ContextEnvelope) (string, error) {
	clone := *env
	clone.Provenance.Digest = ""

	encoded, err := json.Marshal(&clone)
	if err != nil {
		return "", fmt.Errorf("failed to encode envelope: %w", err)
	}
	canonical, err := jcs.Transform(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize envelope: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyDigest recomputes the envelope digest and compares it to the
// embedded one.
func VerifyDigest(env *ContextEnvelope) error {
	if env.Provenance.Digest == "" {
		return fmt.Errorf("envelope carries no digest")
	}
	computed, err := ComputeDigest(env)
	if err != nil {
		return err
	}
	if computed != env.Provenance.Digest {
		return fmt.Errorf("envelope digest mismatch: computed %s, embedded %s",
			computed, env.Provenance.Digest)
	}
	return nil
}
