package identity

import "fmt"

// AuthenticationError indicates the caller token could not be associated
// with a known principal. The token value itself is never carried here.
type AuthenticationError struct {
	Reason string // Why authentication failed ("unknown token", "token expired", etc.)
	Cause  error  // Underlying error, if any
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// Unwrap returns the underlying cause error.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(reason string, cause error) *AuthenticationError {
	return &AuthenticationError{
		Reason: reason,
		Cause:  cause,
	}
}

// AuthorizationError indicates a valid principal requested an intent it has
// not been granted.
type AuthorizationError struct {
	AgentID string // Authenticated agent
	Intent  string // Intent that was denied
}

// Error implements the error interface.
func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed [agent=%s]: intent %q not granted", e.AgentID, e.Intent)
}

// NewAuthorizationError creates a new AuthorizationError.
func NewAuthorizationError(agentID, intent string) *AuthorizationError {
	return &AuthorizationError{
		AgentID: agentID,
		Intent:  intent,
	}
}
