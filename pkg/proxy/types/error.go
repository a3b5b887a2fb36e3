package types

import (
	"net/http"
	"time"
)

// ErrorResponse is the wire shape of every error the proxy returns.
// Agents branch on the machine-readable code and quote the request ID
// when reporting a problem; the request ID also finds the matching
// audit record.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`

	// RetryAfter, when set, is surfaced as a Retry-After header on
	// quota rejections. It is not part of the JSON body.
	RetryAfter time.Duration `json:"-"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error message. It never carries
	// source payloads, tokens, or connection strings.
	Message string `json:"message"`

	// RequestID correlates the error with logs and the audit trail.
	RequestID string `json:"request_id,omitempty"`
}

// Error code constants. The HTTP status is derived from the code, so
// every code maps to exactly one status.
const (
	// CodeInvalidRequest indicates a malformed or invalid request (400).
	CodeInvalidRequest = "invalid_request"

	// CodeInvalidJSON indicates the request body is not valid JSON (400).
	CodeInvalidJSON = "invalid_json"

	// CodeMissingField indicates a required field or parameter is
	// missing (400).
	CodeMissingField = "missing_field"

	// CodeRequestTooLarge indicates the request body exceeds the size
	// limit (400).
	CodeRequestTooLarge = "request_too_large"

	// CodeMethodNotAllowed indicates the wrong HTTP method (405).
	CodeMethodNotAllowed = "method_not_allowed"

	// CodeAuthenticationFailed indicates the caller token could not be
	// resolved to an agent (401).
	CodeAuthenticationFailed = "authentication_failed"

	// CodeAuthorizationDenied indicates a known agent requested an
	// intent it is not granted (403).
	CodeAuthorizationDenied = "authorization_denied"

	// CodePolicyNotFound indicates no policy governs the requested
	// intent (404).
	CodePolicyNotFound = "policy_not_found"

	// CodeSubjectNotFound indicates a required source has no record
	// for the requested subject (404).
	CodeSubjectNotFound = "subject_not_found"

	// CodeQuotaExceeded indicates the agent used up its request
	// budget (429).
	CodeQuotaExceeded = "quota_exceeded"

	// CodeSourceUnavailable indicates a required source could not be
	// fetched (502).
	CodeSourceUnavailable = "source_unavailable"

	// CodeRequestTimeout indicates the request exceeded its time
	// budget (504).
	CodeRequestTimeout = "request_timeout"

	// CodeInternalError indicates an internal failure (500).
	CodeInternalError = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(code, message, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid
// requests (400).
func NewInvalidRequestError(message, requestID string) *ErrorResponse {
	return NewErrorResponse(CodeInvalidRequest, message, requestID)
}

// NewInternalError creates an error response for internal failures
// (500). The message is fixed so internals never leak.
func NewInternalError(requestID string) *ErrorResponse {
	return NewErrorResponse(CodeInternalError,
		"An internal error occurred. Please try again later.", requestID)
}

// HTTPStatusCode returns the HTTP status code for the error code.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Code {
	case CodeInvalidRequest, CodeInvalidJSON, CodeMissingField, CodeRequestTooLarge:
		return http.StatusBadRequest
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeAuthenticationFailed:
		return http.StatusUnauthorized
	case CodeAuthorizationDenied:
		return http.StatusForbidden
	case CodePolicyNotFound, CodeSubjectNotFound:
		return http.StatusNotFound
	case CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeSourceUnavailable:
		return http.StatusBadGateway
	case CodeRequestTimeout:
		return http.StatusGatewayTimeout
	case CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
