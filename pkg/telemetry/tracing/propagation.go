package tracing

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// W3C Trace Context propagation (https://www.w3.org/TR/trace-context/).
//
// Agents calling the proxy may already carry a trace started by their
// own framework; extracting the traceparent header links the proxy's
// spans into that trace. The proxy likewise injects context into
// outbound HTTP source fetches, so a slow upstream shows up in the
// same trace as the request that waited on it.
//
// Header format:
//
//	traceparent: version-trace_id-parent_id-trace_flags
//	             00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// Bit 0 of trace_flags is the sampled bit.

// Propagator returns the configured text map propagator, typically the
// composite W3C Trace Context + Baggage propagator installed by New.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Extract extracts trace context from HTTP headers. Call it on the
// server side when receiving a request:
//
//	ctx := tracing.Extract(r.Context(), r.Header)
//	ctx, span := tracer.Start(ctx, "proxy.request")
//	defer span.End()
//
// If no trace context is present, the original context is returned.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject injects trace context into HTTP headers. Call it before an
// outbound source fetch:
//
//	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
//	tracing.Inject(ctx, req.Header)
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// ExtractFromMap extracts trace context from a string map, for
// non-HTTP carriers.
func ExtractFromMap(ctx context.Context, carrier map[string]string) context.Context {
	return Propagator().Extract(ctx, propagation.MapCarrier(carrier))
}

// InjectToMap injects trace context into a string map, for non-HTTP
// carriers.
func InjectToMap(ctx context.Context, carrier map[string]string) {
	Propagator().Inject(ctx, propagation.MapCarrier(carrier))
}

// HTTPMiddleware extracts trace context from incoming requests and
// echoes the trace and span IDs on response headers, so an agent can
// quote them when reporting a problem.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)

		if span := SpanFromContext(ctx); span.SpanContext().IsValid() {
			w.Header().Set("X-Trace-ID", span.SpanContext().TraceID().String())
			w.Header().Set("X-Span-ID", span.SpanContext().SpanID().String())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ValidateTraceParent reports whether a traceparent header is valid
// per the W3C Trace Context spec:
//   - version: 2 hex digits
//   - trace_id: 32 hex digits, not all zeros
//   - parent_id: 16 hex digits, not all zeros
//   - trace_flags: 2 hex digits
func ValidateTraceParent(traceparent string) bool {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return false
	}

	if len(parts[0]) != 2 || !isHexString(parts[0]) {
		return false
	}
	if len(parts[1]) != 32 || !isHexString(parts[1]) {
		return false
	}
	if len(parts[2]) != 16 || !isHexString(parts[2]) {
		return false
	}
	if len(parts[3]) != 2 || !isHexString(parts[3]) {
		return false
	}

	if parts[1] == strings.Repeat("0", 32) {
		return false
	}
	if parts[2] == strings.Repeat("0", 16) {
		return false
	}

	return true
}

// isHexString checks if a string contains only hexadecimal characters.
func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// ParseTraceParent parses a traceparent header into its components.
// Returns empty strings if the header is invalid.
func ParseTraceParent(traceparent string) (version, traceID, parentID, flags string, valid bool) {
	if !ValidateTraceParent(traceparent) {
		return "", "", "", "", false
	}

	parts := strings.Split(traceparent, "-")
	return parts[0], parts[1], parts[2], parts[3], true
}

// IsSampledFromTraceParent reports whether the traceparent header's
// sampled bit is set.
func IsSampledFromTraceParent(traceparent string) bool {
	_, _, _, flags, valid := ParseTraceParent(traceparent)
	if !valid {
		return false
	}

	var flagsByte byte
	if _, err := fmt.Sscanf(flags, "%02x", &flagsByte); err != nil {
		return false
	}

	return (flagsByte & 0x01) == 0x01
}
