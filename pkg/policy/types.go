package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FreshnessRealTime marks a source whose payload must be fetched on every
// request and is never served from cache.
const FreshnessRealTime = "real-time"

// Known data classification tags, ordered from least to most sensitive.
var ValidClassifications = []string{"public", "internal", "confidential", "restricted"}

// Decision is the governance outcome for one intent: which sources to
// consult, what each may release, and the constraints the envelope carries.
// A Decision is immutable once loaded; the engine hands out copies.
type Decision struct {
	// Intent is the request purpose this decision governs.
	Intent string `yaml:"intent"`

	// Version identifies the policy revision, set by policy authors.
	// Two requests under the same (intent, version) pair always receive
	// the same decision.
	Version string `yaml:"version"`

	// Description is free-form documentation for operators.
	Description string `yaml:"description,omitempty"`

	// Classification is the data classification stamped on envelopes.
	Classification string `yaml:"classification"`

	// TTLSeconds bounds how long a caller may hold the context.
	TTLSeconds int `yaml:"ttl_seconds"`

	// PermittedActions are the follow-up actions the caller may take with
	// the context.
	PermittedActions []string `yaml:"permitted_actions"`

	// RedactedFields documents the sensitive fields this policy withholds.
	// The filter stage does not consult it — filtering is allow-list
	// driven — but it is validated against source allow-lists so a field
	// cannot be both declared redacted and released.
	RedactedFields []string `yaml:"redacted_fields,omitempty"`

	// Sources are the backends consulted for this intent.
	Sources []SourcePolicy `yaml:"sources"`
}

// SourcePolicy governs one source within a decision.
type SourcePolicy struct {
	// Name of the source, matching a configured source connector.
	Name string `yaml:"name"`

	// Required marks a source whose failure fails the whole request.
	// Optional sources that fail are recorded as omitted in provenance.
	Required bool `yaml:"required"`

	// Freshness declares how current the payload must be: "real-time",
	// or a staleness bound like "24h" or "30d".
	Freshness string `yaml:"freshness"`

	// KeyParam names the request parameter carrying the record key for
	// this source. Empty means the source serves a single document.
	KeyParam string `yaml:"key_param,omitempty"`

	// Fields is the strict allow-list of fields released to the caller.
	Fields []string `yaml:"fields"`
}

// CacheTTL returns how long a payload from this source may be served from
// cache. Zero means never cached. Freshness is validated at load time, so
// an unparseable value here also yields zero.
func (sp *SourcePolicy) CacheTTL() time.Duration {
	ttl, err := ParseFreshness(sp.Freshness)
	if err != nil {
		return 0
	}
	return ttl
}

// Source returns the policy for the named source.
func (d *Decision) Source(name string) (*SourcePolicy, bool) {
	for i := range d.Sources {
		if d.Sources[i].Name == name {
			return &d.Sources[i], true
		}
	}
	return nil, false
}

// AllowedFields returns the allow-list for the named source, or nil if the
// source is not part of this decision.
func (d *Decision) AllowedFields(source string) []string {
	sp, ok := d.Source(source)
	if !ok {
		return nil
	}
	return sp.Fields
}

// Summary renders the decision reference recorded in provenance and audit
// records.
func (d *Decision) Summary() string {
	return d.Intent + "@" + d.Version
}

// Clone returns a deep copy. The engine clones on every Decide so callers
// can never reach the shared snapshot.
func (d *Decision) Clone() *Decision {
	c := *d
	c.PermittedActions = append([]string(nil), d.PermittedActions...)
	c.RedactedFields = append([]string(nil), d.RedactedFields...)
	c.Sources = make([]SourcePolicy, len(d.Sources))
	for i, sp := range d.Sources {
		c.Sources[i] = sp
		c.Sources[i].Fields = append([]string(nil), sp.Fields...)
	}
	return &c
}

// Validate checks structural soundness of a loaded decision.
func (d *Decision) Validate() error {
	if d.Intent == "" {
		return NewValidationError("", "intent", "cannot be empty")
	}
	if d.Version == "" {
		return NewValidationError(d.Intent, "version", "cannot be empty")
	}
	if !isValidClassification(d.Classification) {
		return NewValidationError(d.Intent, "classification",
			fmt.Sprintf("must be one of %s", strings.Join(ValidClassifications, ", ")))
	}
	if d.TTLSeconds <= 0 {
		return NewValidationError(d.Intent, "ttl_seconds", "must be positive")
	}
	if len(d.PermittedActions) == 0 {
		return NewValidationError(d.Intent, "permitted_actions", "cannot be empty")
	}
	if len(d.Sources) == 0 {
		return NewValidationError(d.Intent, "sources", "cannot be empty")
	}

	seen := make(map[string]bool, len(d.Sources))
	allowed := make(map[string]bool)
	for i := range d.Sources {
		sp := &d.Sources[i]
		if sp.Name == "" {
			return NewValidationError(d.Intent, "sources", "source name cannot be empty")
		}
		if seen[sp.Name] {
			return NewValidationError(d.Intent, "sources",
				fmt.Sprintf("duplicate source %q", sp.Name))
		}
		seen[sp.Name] = true

		if len(sp.Fields) == 0 {
			return NewValidationError(d.Intent, "sources",
				fmt.Sprintf("source %q has an empty field allow-list", sp.Name))
		}
		if _, err := ParseFreshness(sp.Freshness); err != nil {
			return NewValidationError(d.Intent, "sources",
				fmt.Sprintf("source %q: %v", sp.Name, err))
		}
		for _, f := range sp.Fields {
			allowed[f] = true
		}
	}

	// A field cannot be both released and declared redacted.
	for _, f := range d.RedactedFields {
		if allowed[f] {
			return NewValidationError(d.Intent, "redacted_fields",
				fmt.Sprintf("field %q is also in a source allow-list", f))
		}
	}

	return nil
}

func isValidClassification(c string) bool {
	for _, valid := range ValidClassifications {
		if c == valid {
			return true
		}
	}
	return false
}

// ParseFreshness parses a freshness declaration. "real-time" yields zero;
// otherwise the value is a duration such as "30m", "24h", or "30d" (days
// are not understood by time.ParseDuration and are handled here).
func ParseFreshness(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("freshness cannot be empty")
	}
	if s == FreshnessRealTime {
		return 0, nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid freshness %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	ttl, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid freshness %q", s)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("freshness %q must be positive", s)
	}
	return ttl, nil
}
