package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mercator-hq/ganymede/pkg/proxy/types"
)

// MaxRequestBodySize is the maximum allowed request body size (1MB).
// Context requests are small; anything larger is a mistake.
const MaxRequestBodySize = 1 << 20

// ContextRequest is what an agent sends to obtain a context envelope.
// The agent names an intent and identifies the subject through
// parameters; it never names sources, fields, or freshness. Those are
// the policy's business.
type ContextRequest struct {
	// Intent names the task the agent is performing, e.g.
	// "loan_assessment". It selects the governing policy.
	Intent string `json:"intent"`

	// Parameters identify the subject of the request, e.g.
	// {"customer_id": "cust-4412"}. Keys referenced by the policy's
	// source bindings must be present.
	Parameters map[string]string `json:"parameters,omitempty"`

	// CallerToken authenticates the agent when no Authorization
	// header is set. The header wins when both are present.
	CallerToken string `json:"caller_token,omitempty"`
}

// Validate checks that the request is well-formed.
func (r *ContextRequest) Validate() error {
	if r.Intent == "" {
		return NewRequestError("intent is required", types.CodeMissingField, "intent")
	}
	for key := range r.Parameters {
		if key == "" {
			return NewRequestError("parameter keys must be non-empty", types.CodeInvalidRequest, "parameters")
		}
	}
	return nil
}

// subjectKey derives a stable subject identifier for quota accounting
// and audit records. Single-parameter requests use the bare value;
// multi-parameter requests join key=value pairs deterministically.
func (r *ContextRequest) subjectKey() string {
	switch len(r.Parameters) {
	case 0:
		return ""
	case 1:
		for _, v := range r.Parameters {
			return v
		}
	}
	keys := make([]string, 0, len(r.Parameters))
	for k := range r.Parameters {
		keys = append(keys, k)
	}
	sortStrings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+r.Parameters[k])
	}
	return strings.Join(parts, ",")
}

// sortStrings is an insertion sort; parameter maps hold a handful of
// keys at most.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// ParseContextRequest parses and validates a context request from an
// HTTP request body.
func ParseContextRequest(r *http.Request) (*ContextRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return nil, NewRequestError("failed to read request body", types.CodeInvalidRequest, "")
	}
	defer func() { _ = r.Body.Close() }()

	if len(body) > MaxRequestBodySize {
		return nil, NewRequestError(
			fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
			types.CodeRequestTooLarge, "")
	}

	if len(body) == 0 {
		return nil, NewRequestError("request body is required", types.CodeInvalidRequest, "")
	}

	var req ContextRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, NewRequestError(
			fmt.Sprintf("invalid JSON in request body: %v", err),
			types.CodeInvalidJSON, "")
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return &req, nil
}

// ExtractBearerToken extracts the caller token from the Authorization
// header. Returns an empty string when the header is absent or not a
// bearer token; the body's caller_token field is the fallback.
func ExtractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequestError represents a request validation error.
type RequestError struct {
	// Message is the human-readable error message.
	Message string

	// Code is the machine-readable error code.
	Code string

	// Param names the offending field or parameter, when known.
	Param string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s (param: %s)", e.Message, e.Param)
	}
	return e.Message
}

// NewRequestError creates a new request error.
func NewRequestError(message, code, param string) *RequestError {
	return &RequestError{
		Message: message,
		Code:    code,
		Param:   param,
	}
}

// ToErrorResponse converts the request error to a wire error response.
func (e *RequestError) ToErrorResponse(requestID string) *types.ErrorResponse {
	return types.NewErrorResponse(e.Code, e.Message, requestID)
}
