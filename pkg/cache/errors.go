package cache

import "fmt"

// CacheError indicates a failure in a cache backend.
type CacheError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error [backend=%s, operation=%s]: %v",
		e.Backend, e.Operation, e.Cause)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// NewCacheError creates a new CacheError.
func NewCacheError(backend, operation string, cause error) *CacheError {
	return &CacheError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}
