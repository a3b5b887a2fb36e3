package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"mercator-hq/ganymede/pkg/proxy"
	"mercator-hq/ganymede/pkg/proxy/middleware"
	"mercator-hq/ganymede/pkg/proxy/types"
)

// ContextHandler serves POST /v1/context, the single endpoint agents
// call for governed context.
type ContextHandler struct {
	provider ContextProvider
	logger   *slog.Logger
}

// NewContextHandler creates a context handler over the given provider.
func NewContextHandler(provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		provider: provider,
		logger:   slog.Default().With("component", "context-handler"),
	}
}

// ServeHTTP parses the request, hands it to the pipeline, and writes
// either the envelope or the mapped error.
func (h *ContextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(
			types.CodeMethodNotAllowed,
			fmt.Sprintf("method %s is not allowed, use POST", r.Method),
			requestID))
		return
	}

	req, err := proxy.ParseContextRequest(r)
	if err != nil {
		var reqErr *proxy.RequestError
		if errors.As(err, &reqErr) {
			_ = proxy.WriteErrorResponse(w, reqErr.ToErrorResponse(requestID))
		} else {
			_ = proxy.WriteErrorResponse(w, types.NewInternalError(requestID))
		}
		return
	}

	// The Authorization header wins over the body token.
	if token := proxy.ExtractBearerToken(r); token != "" {
		req.CallerToken = token
	}

	env, err := h.provider.RequestContext(r.Context(), req)
	if err != nil {
		var errResp *types.ErrorResponse
		// When the request's own deadline expired, report the time
		// budget rather than whichever stage happened to be running.
		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			errResp = types.NewErrorResponse(types.CodeRequestTimeout,
				"request exceeded its time budget", requestID)
		} else {
			errResp = proxy.HandleError(err, requestID)
		}
		_ = proxy.WriteErrorResponse(w, errResp)
		return
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, env); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write context envelope", "error", err)
	}
}
