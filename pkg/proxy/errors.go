package proxy

import (
	"context"
	"errors"

	"mercator-hq/ganymede/pkg/fanout"
	"mercator-hq/ganymede/pkg/identity"
	"mercator-hq/ganymede/pkg/limits"
	"mercator-hq/ganymede/pkg/policy"
	"mercator-hq/ganymede/pkg/proxy/types"
	"mercator-hq/ganymede/pkg/source"
)

// HandleError converts a pipeline error to the wire error response.
// Each stage's typed errors map to one code, so agents can branch on
// the code and operators can grep for it. Unknown errors collapse to
// a generic internal error; their details go to the log, never to the
// caller.
func HandleError(err error, requestID string) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse(requestID)
	}

	var authnErr *identity.AuthenticationError
	if errors.As(err, &authnErr) {
		return types.NewErrorResponse(types.CodeAuthenticationFailed, authnErr.Error(), requestID)
	}

	var authzErr *identity.AuthorizationError
	if errors.As(err, &authzErr) {
		return types.NewErrorResponse(types.CodeAuthorizationDenied, authzErr.Error(), requestID)
	}

	var policyErr *policy.NotFoundError
	if errors.As(err, &policyErr) {
		return types.NewErrorResponse(types.CodePolicyNotFound, policyErr.Error(), requestID)
	}

	var quotaErr *limits.QuotaExceededError
	if errors.As(err, &quotaErr) {
		resp := types.NewErrorResponse(types.CodeQuotaExceeded, quotaErr.Error(), requestID)
		resp.RetryAfter = quotaErr.RetryAfter
		return resp
	}

	// Subject lookup misses before connector failures: a connector may
	// wrap a not-found in its own error.
	var subjectErr *source.NotFoundError
	if errors.As(err, &subjectErr) {
		return types.NewErrorResponse(types.CodeSubjectNotFound, subjectErr.Error(), requestID)
	}

	var timeoutErr *fanout.TimeoutError
	if errors.As(err, &timeoutErr) {
		return types.NewErrorResponse(types.CodeRequestTimeout, timeoutErr.Error(), requestID)
	}

	var sourceErr *source.SourceError
	if errors.As(err, &sourceErr) {
		return types.NewErrorResponse(types.CodeSourceUnavailable, sourceErr.Error(), requestID)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewErrorResponse(types.CodeRequestTimeout,
			"request exceeded its time budget", requestID)
	}

	return types.NewInternalError(requestID)
}
