// Package tracing provides OpenTelemetry distributed tracing for the
// proxy.
//
// # Overview
//
// A request span wraps the whole pipeline, with child spans per stage:
// identity, limits, policy, fanout (one child per source fetch),
// filter, envelope, audit. Spans export over OTLP gRPC to a collector;
// sampling is parent-based on top of the configured strategy.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "proxy.request")
//	defer span.End()
//	tracing.SetRequestAttributes(span, requestID, agentID, intent)
//
// When tracing is disabled, New returns a noop tracer, so call sites
// never branch on configuration.
//
// # Propagation
//
// Incoming traceparent headers are extracted so the proxy's spans join
// the agent's trace; outbound HTTP source fetches carry the context
// onward. See Extract, Inject, and HTTPMiddleware.
package tracing
