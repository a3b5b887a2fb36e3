package policy

import "fmt"

// NotFoundError indicates a request named an intent no loaded policy governs.
type NotFoundError struct {
	Intent string // Intent that was requested
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("policy not found [intent=%s]", e.Intent)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(intent string) *NotFoundError {
	return &NotFoundError{Intent: intent}
}

// LoadError represents a failure reading or parsing a policy file.
type LoadError struct {
	Path    string // File or directory that failed
	Message string // What went wrong
	Cause   error  // Underlying error, if any
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("policy load error [path=%s]: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("policy load error [path=%s]: %s", e.Path, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NewLoadError creates a new LoadError.
func NewLoadError(path, message string, cause error) *LoadError {
	return &LoadError{
		Path:    path,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError represents a structurally invalid policy.
type ValidationError struct {
	Intent  string // Intent being validated, if known
	Field   string // Policy field at fault
	Message string // What is wrong with it
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Intent != "" {
		return fmt.Sprintf("policy validation error [intent=%s, field=%s]: %s", e.Intent, e.Field, e.Message)
	}
	return fmt.Sprintf("policy validation error [field=%s]: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(intent, field, message string) *ValidationError {
	return &ValidationError{
		Intent:  intent,
		Field:   field,
		Message: message,
	}
}
