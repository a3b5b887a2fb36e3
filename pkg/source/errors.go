package source

import (
	"errors"
	"fmt"
)

// SourceError reports a connector failure while talking to an upstream
// system of record.
type SourceError struct {
	Source    string
	Operation string
	Message   string
	Cause     error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("source error [source=%s, operation=%s]: %s", e.Source, e.Operation, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// NewSourceError creates a new SourceError.
func NewSourceError(source, operation, message string, cause error) *SourceError {
	return &SourceError{
		Source:    source,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// NotFoundError reports that an upstream has no record for the
// requested subject key.
type NotFoundError struct {
	Source string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record not found [source=%s, key=%s]", e.Source, e.Key)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(source, key string) *NotFoundError {
	return &NotFoundError{Source: source, Key: key}
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
