package fanout

import (
	"fmt"
	"time"
)

// TimeoutError reports that the fan-out stage exhausted its total
// budget before every source came back.
type TimeoutError struct {
	Timeout   time.Duration
	Completed int
	Total     int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("context assembly timed out [timeout=%s, sources_completed=%d/%d]",
		e.Timeout, e.Completed, e.Total)
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(timeout time.Duration, completed, total int) *TimeoutError {
	return &TimeoutError{Timeout: timeout, Completed: completed, Total: total}
}
