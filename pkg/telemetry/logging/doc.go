// Package logging provides structured logging with mandatory redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON and text formats
//   - Redaction of credentials and personal data in every record
//   - Context-aware logging with request IDs and agent metadata
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	// Create a logger
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	// Log structured data
//	logger.Info("request processed",
//	    "request_id", "req-123",
//	    "bearer_token", "hunter2secret",  // Automatically redacted
//	    "duration_ms", 1234,
//	)
//
//	// Install as the process default; component loggers created with
//	// slog.Default().With(...) inherit the redacting handler.
//	slog.SetDefault(logger.Slog())
//
//	// Create context-aware logger
//	ctx = logging.WithRequestID(ctx, "req-123")
//	ctxLogger := logger.WithContext(ctx)
//	ctxLogger.Info("processing")  // Includes request_id automatically
//
// # Redaction
//
// Redaction runs inside the slog handler and cannot be switched off.
// Values under sensitive keys (token, password, dsn, ...) are masked to
// a short prefix; string values everywhere else run through the
// built-in patterns:
//
//   - Bearer tokens and JWTs
//   - Connection strings: postgres://user:pw@host/db → postgres://***
//   - Emails: user@example.com → ***@example.com
//   - SSN: 123-45-6789 → ***-**-****
//   - Credit cards, phone numbers, IPv4 addresses
//
// Custom patterns from the telemetry configuration are applied on top
// and may replace built-ins by name.
package logging
