package logging

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for the request ID.
	RequestIDKey contextKey = "request_id"

	// AgentIDKey is the context key for the authenticated agent.
	AgentIDKey contextKey = "agent_id"

	// IntentKey is the context key for the declared intent.
	IntentKey contextKey = "intent"

	// PolicyIDKey is the context key for the policy that governed the
	// request.
	PolicyIDKey contextKey = "policy_id"

	// TraceIDKey is the context key for the trace ID.
	TraceIDKey contextKey = "trace_id"

	// SpanIDKey is the context key for the span ID.
	SpanIDKey contextKey = "span_id"
)

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithAgentID returns a new context with the agent ID set.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, AgentIDKey, agentID)
}

// WithIntent returns a new context with the intent set.
func WithIntent(ctx context.Context, intent string) context.Context {
	return context.WithValue(ctx, IntentKey, intent)
}

// WithPolicyID returns a new context with the policy ID set.
func WithPolicyID(ctx context.Context, policyID string) context.Context {
	return context.WithValue(ctx, PolicyIDKey, policyID)
}

// WithTraceID returns a new context with the trace ID set.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithSpanID returns a new context with the span ID set.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, SpanIDKey, spanID)
}

// GetRequestID extracts the request ID from the context.
func GetRequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(RequestIDKey).(string)
	return v, ok
}

// GetAgentID extracts the agent ID from the context.
func GetAgentID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(AgentIDKey).(string)
	return v, ok
}

// GetIntent extracts the intent from the context.
func GetIntent(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(IntentKey).(string)
	return v, ok
}

// GetPolicyID extracts the policy ID from the context.
func GetPolicyID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(PolicyIDKey).(string)
	return v, ok
}

// GetTraceID extracts the trace ID from the context.
func GetTraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(TraceIDKey).(string)
	return v, ok
}

// GetSpanID extracts the span ID from the context.
func GetSpanID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(SpanIDKey).(string)
	return v, ok
}

// extractContextFields extracts all known fields from the context as
// alternating key, value pairs in a fixed order.
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID, ok := GetRequestID(ctx); ok {
		fields = append(fields, string(RequestIDKey), requestID)
	}
	if agentID, ok := GetAgentID(ctx); ok {
		fields = append(fields, string(AgentIDKey), agentID)
	}
	if intent, ok := GetIntent(ctx); ok {
		fields = append(fields, string(IntentKey), intent)
	}
	if policyID, ok := GetPolicyID(ctx); ok {
		fields = append(fields, string(PolicyIDKey), policyID)
	}
	if traceID, ok := GetTraceID(ctx); ok {
		fields = append(fields, string(TraceIDKey), traceID)
	}
	if spanID, ok := GetSpanID(ctx); ok {
		fields = append(fields, string(SpanIDKey), spanID)
	}

	return fields
}

// ContextLogger binds a Logger to a context so request handlers can
// log without threading the context through every call.
type ContextLogger struct {
	logger *Logger
	ctx    context.Context
}

// NewContextLogger creates a logger bound to the given context.
func NewContextLogger(ctx context.Context, logger *Logger) *ContextLogger {
	return &ContextLogger{
		logger: logger,
		ctx:    ctx,
	}
}

// Debug logs a debug-level message with context fields.
func (cl *ContextLogger) Debug(msg string, args ...any) {
	cl.logger.DebugContext(cl.ctx, msg, args...)
}

// Info logs an info-level message with context fields.
func (cl *ContextLogger) Info(msg string, args ...any) {
	cl.logger.InfoContext(cl.ctx, msg, args...)
}

// Warn logs a warning-level message with context fields.
func (cl *ContextLogger) Warn(msg string, args ...any) {
	cl.logger.WarnContext(cl.ctx, msg, args...)
}

// Error logs an error-level message with context fields.
func (cl *ContextLogger) Error(msg string, args ...any) {
	cl.logger.ErrorContext(cl.ctx, msg, args...)
}

// With returns a ContextLogger with additional fields.
func (cl *ContextLogger) With(args ...any) *ContextLogger {
	return &ContextLogger{
		logger: cl.logger.With(args...),
		ctx:    cl.ctx,
	}
}
