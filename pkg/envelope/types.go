package envelope

import (
	"time"

	"mercator-hq/ganymede/pkg/identity"
)

// ContextEnvelope is the unit of delivery: filtered data plus the
// provenance and constraints that govern its use.
type ContextEnvelope struct {
	// Payload maps source names to their filtered fields.
	Payload map[string]map[string]any `json:"payload"`

	Provenance  Provenance  `json:"provenance"`
	Constraints Constraints `json:"constraints"`
}

// Provenance records how the envelope came to be.
type Provenance struct {
	// RequestID identifies the originating request.
	RequestID string `json:"request_id"`

	// Timestamp is when the envelope was assembled, in UTC.
	Timestamp time.Time `json:"timestamp"`

	// Sources lists every source the policy named, in policy order,
	// including optional sources that were omitted.
	Sources []SourceProvenance `json:"sources"`

	// PolicyDecision names the policy that shaped the envelope as
	// "intent@version".
	PolicyDecision string `json:"policy_decision"`

	// OriginalSize is the JSON byte size of the raw records before
	// filtering; FilteredSize is the size after.
	OriginalSize int64 `json:"original_size"`
	FilteredSize int64 `json:"filtered_size"`

	// Agent is a snapshot of the requesting identity.
	Agent identity.Snapshot `json:"agent"`

	// Digest is the hex SHA-256 of the envelope's canonical JSON
	// form, computed with this field empty.
	Digest string `json:"digest,omitempty"`
}

// SourceProvenance describes one source's contribution.
type SourceProvenance struct {
	// Service is the policy's name for the source.
	Service string `json:"service"`

	// Freshness echoes the policy's freshness declaration.
	Freshness string `json:"freshness"`

	// FetchedAt is when the record was retrieved upstream. Nil for
	// omitted sources.
	FetchedAt *time.Time `json:"fetched_at,omitempty"`

	// Cached reports the record came from the payload cache.
	Cached bool `json:"cached,omitempty"`

	// Filtered reports that the allow-list projection ran. Always
	// true for fetched sources.
	Filtered bool `json:"filtered"`

	// Omitted marks an optional source that failed; its fields are
	// absent from the payload.
	Omitted bool `json:"omitted,omitempty"`
}

// Constraints tell the consumer how the envelope may be used.
type Constraints struct {
	// TTLSeconds is how long the envelope's data may be relied on.
	TTLSeconds int `json:"ttl_seconds"`

	// PermittedActions are the only operations the agent may perform
	// with this data.
	PermittedActions []string `json:"permitted_actions"`

	// RedactedFields lists every field withheld by filtering, across
	// all sources, deduplicated and sorted.
	RedactedFields []string `json:"redacted_fields"`

	// DataClassification is the policy's sensitivity label.
	DataClassification string `json:"data_classification"`
}

// ExpiresAt returns the instant the envelope's constraints lapse.
func (e *ContextEnvelope) ExpiresAt() time.Time {
	return e.Provenance.Timestamp.Add(time.Duration(e.Constraints.TTLSeconds) * time.Second)
}

// OmittedSources returns the names of sources marked omitted.
func (e *ContextEnvelope) OmittedSources() []string {
	var omitted []string
	for _, sp := range e.Provenance.Sources {
		if sp.Omitted {
			omitted = append(omitted, sp.Service)
		}
	}
	return omitted
}
