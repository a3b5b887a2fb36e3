package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/proxy"
	"mercator-hq/ganymede/pkg/proxy/middleware"
	"mercator-hq/ganymede/pkg/proxy/types"
)

const (
	// defaultRecordsLimit bounds a records listing when the caller
	// does not set one.
	defaultRecordsLimit = 100

	// maxRecordsLimit caps what a caller may request per page.
	maxRecordsLimit = 1000
)

// AuditHandler serves the operator read surface over the audit trail:
// GET /v1/audit/records and GET /v1/audit/verify. It only reads;
// appends happen exclusively inside the pipeline.
type AuditHandler struct {
	storage audit.Storage
	logger  *slog.Logger
}

// NewAuditHandler creates an audit handler over the given storage.
func NewAuditHandler(storage audit.Storage) *AuditHandler {
	return &AuditHandler{
		storage: storage,
		logger:  slog.Default().With("component", "audit-handler"),
	}
}

// recordsResponse is the wire shape of a records listing. Count is the
// total match count ignoring limit and offset, for pagination.
type recordsResponse struct {
	Records []*audit.Record `json:"records"`
	Count   int64           `json:"count"`
}

// Records lists audit records matching the query parameters: agent_id,
// intent, request_id, status, start_time, end_time (RFC 3339), limit,
// offset.
func (h *AuditHandler) Records(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(
			types.CodeMethodNotAllowed,
			fmt.Sprintf("method %s is not allowed, use GET", r.Method),
			requestID))
		return
	}

	query, err := parseRecordsQuery(r)
	if err != nil {
		_ = proxy.WriteErrorResponse(w, types.NewInvalidRequestError(err.Error(), requestID))
		return
	}

	records, err := h.storage.List(r.Context(), query)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit listing failed", "error", err)
		_ = proxy.WriteErrorResponse(w, types.NewInternalError(requestID))
		return
	}

	count, err := h.storage.Count(r.Context(), query)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit count failed", "error", err)
		_ = proxy.WriteErrorResponse(w, types.NewInternalError(requestID))
		return
	}

	if records == nil {
		records = []*audit.Record{}
	}
	_ = proxy.WriteJSONResponse(w, http.StatusOK, &recordsResponse{
		Records: records,
		Count:   count,
	})
}

// Verify walks the full chain and reports its integrity. A broken
// chain is a 200 with intact=false: the verification ran and that is
// its answer. Non-200 means the verification itself could not run.
func (h *AuditHandler) Verify(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(
			types.CodeMethodNotAllowed,
			fmt.Sprintf("method %s is not allowed, use GET", r.Method),
			requestID))
		return
	}

	result, err := audit.VerifyChain(r.Context(), h.storage)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "chain verification failed to run", "error", err)
		_ = proxy.WriteErrorResponse(w, types.NewInternalError(requestID))
		return
	}

	if !result.Intact {
		h.logger.ErrorContext(r.Context(), "audit chain verification found tampering",
			"records_checked", result.RecordsChecked,
			"failure", result.Failure,
		)
	}
	_ = proxy.WriteJSONResponse(w, http.StatusOK, result)
}

// parseRecordsQuery builds an audit query from URL parameters.
func parseRecordsQuery(r *http.Request) (*audit.Query, error) {
	params := r.URL.Query()
	query := &audit.Query{
		AgentID:   params.Get("agent_id"),
		Intent:    params.Get("intent"),
		RequestID: params.Get("request_id"),
		Limit:     defaultRecordsLimit,
	}

	switch status := params.Get("status"); status {
	case "", audit.StatusSuccess, audit.StatusError:
		query.Status = status
	default:
		return nil, fmt.Errorf("invalid status %q, use %q or %q",
			status, audit.StatusSuccess, audit.StatusError)
	}

	if v := params.Get("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid start_time %q, use RFC 3339", v)
		}
		query.StartTime = &t
	}
	if v := params.Get("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid end_time %q, use RFC 3339", v)
		}
		query.EndTime = &t
	}

	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return nil, fmt.Errorf("invalid limit %q", v)
		}
		if limit > maxRecordsLimit {
			limit = maxRecordsLimit
		}
		query.Limit = limit
	}
	if v := params.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return nil, fmt.Errorf("invalid offset %q", v)
		}
		query.Offset = offset
	}

	return query, nil
}
