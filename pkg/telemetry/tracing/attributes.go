package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys. Everything proxy-specific lives under the
// ganymede.* namespace so collector pipelines can route on it.
const (
	// Request identity
	AttrRequestID = "ganymede.request_id"
	AttrAgentID   = "ganymede.agent_id"
	AttrIntent    = "ganymede.intent"
	AttrOutcome   = "ganymede.outcome"

	// Policy evaluation
	AttrPolicyID     = "ganymede.policy.id"
	AttrPolicyResult = "ganymede.policy.result"

	// Source fetches
	AttrSource       = "ganymede.source"
	AttrSourceStatus = "ganymede.source.status"

	// Payload cache
	AttrCacheHit  = "ganymede.cache.hit"
	AttrCacheName = "ganymede.cache.name"

	// Envelope assembly
	AttrEnvelopeBytes  = "ganymede.envelope.bytes"
	AttrFieldsReturned = "ganymede.fields.returned"
	AttrFieldsRedacted = "ganymede.fields.redacted"

	// Errors
	AttrErrorType    = "ganymede.error.type"
	AttrErrorMessage = "error.message"
)

// SetRequestAttributes sets the identifying attributes on a request
// span. Agent tokens never go on spans; the agent ID is enough to
// correlate with the audit trail.
func SetRequestAttributes(span trace.Span, requestID, agentID, intent string) {
	span.SetAttributes(
		attribute.String(AttrRequestID, requestID),
		attribute.String(AttrAgentID, agentID),
		attribute.String(AttrIntent, intent),
	)
}

// SetOutcomeAttribute records the terminal outcome of a request.
func SetOutcomeAttribute(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String(AttrOutcome, outcome))
}

// SetPolicyAttributes records which policy governed the request and
// its decision.
func SetPolicyAttributes(span trace.Span, policyID, result string) {
	span.SetAttributes(
		attribute.String(AttrPolicyID, policyID),
		attribute.String(AttrPolicyResult, result),
	)
}

// SetSourceAttributes records a source fetch on its span.
func SetSourceAttributes(span trace.Span, source, status string) {
	span.SetAttributes(
		attribute.String(AttrSource, source),
		attribute.String(AttrSourceStatus, status),
	)
}

// SetCacheAttributes records whether a fetch was served from cache.
func SetCacheAttributes(span trace.Span, hit bool, cacheName string) {
	span.SetAttributes(
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheName, cacheName),
	)
}

// SetEnvelopeAttributes records the shape of the assembled envelope.
func SetEnvelopeAttributes(span trace.Span, sizeBytes, fieldsReturned, fieldsRedacted int) {
	span.SetAttributes(
		attribute.Int(AttrEnvelopeBytes, sizeBytes),
		attribute.Int(AttrFieldsReturned, fieldsReturned),
		attribute.Int(AttrFieldsRedacted, fieldsRedacted),
	)
}

// SetErrorAttributes records an error on the span and marks its status
// as failed.
//
// Error types mirror the metrics labels: "timeout", "connection",
// "auth", "decode", "policy", "quota".
func SetErrorAttributes(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}

	span.SetAttributes(
		attribute.String(AttrErrorType, errorType),
		attribute.String(AttrErrorMessage, err.Error()),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent adds a timestamped event to the span.
//
//	AddEvent(span, "cache.evicted", attribute.String("key", key))
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordException records an error as a span exception event without
// changing the span status.
func RecordException(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
}
