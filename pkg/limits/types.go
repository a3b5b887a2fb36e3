package limits

import (
	"fmt"
	"time"
)

// Quota is a per-agent request budget. Zero values mean unlimited for
// that window.
type Quota struct {
	// RequestsPerMinute caps requests over a rolling minute.
	RequestsPerMinute int64 `yaml:"requests_per_minute"`

	// RequestsPerHour caps requests over a rolling hour.
	RequestsPerHour int64 `yaml:"requests_per_hour"`
}

// Unlimited reports whether the quota constrains nothing.
func (q Quota) Unlimited() bool {
	return q.RequestsPerMinute <= 0 && q.RequestsPerHour <= 0
}

// Decision is the outcome of a quota check.
type Decision struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool

	// AgentID is the agent the decision applies to.
	AgentID string

	// Limit and Window identify the constraint that decided. For an
	// allowed request with several limits, the tightest one.
	Limit  int64
	Window time.Duration

	// Remaining is how many requests are left in that window.
	Remaining int64

	// RetryAfter is how long to wait before the next request can
	// succeed. Zero when allowed.
	RetryAfter time.Duration
}

// QuotaExceededError indicates an agent has used up its request
// budget.
type QuotaExceededError struct {
	AgentID    string
	Limit      int64
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded [agent=%s, limit=%d per %s]: retry after %s",
		e.AgentID, e.Limit, e.Window, e.RetryAfter)
}

// NewQuotaExceededError builds the error for a blocking decision.
func NewQuotaExceededError(decision *Decision) *QuotaExceededError {
	return &QuotaExceededError{
		AgentID:    decision.AgentID,
		Limit:      decision.Limit,
		Window:     decision.Window,
		RetryAfter: decision.RetryAfter,
	}
}
