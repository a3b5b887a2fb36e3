// Package telemetry provides observability for the Ganymede proxy.
//
// # Components
//
//   - logging: structured slog logging with mandatory redaction
//   - metrics: Prometheus metrics for the request pipeline
//   - tracing: OpenTelemetry distributed tracing
//   - health: liveness and readiness endpoints
//
// Each subpackage is wired independently from its section of
// config.TelemetryConfig; there is no shared initialization object.
// The server constructs the logger first and installs it with
// slog.SetDefault, so metrics, tracing, and every other package log
// through the redacting handler.
package telemetry
