package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"mercator-hq/ganymede/pkg/config"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs logs as JSON objects, one per line.
	FormatJSON LogFormat = "json"

	// FormatText outputs logs in slog's key=value text form.
	FormatText LogFormat = "text"
)

// Config contains configuration for the logger.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string

	// Format is the output format (json, text).
	Format string

	// AddSource includes the source file and line in each record.
	AddSource bool

	// RedactPatterns are custom redaction patterns applied on top of
	// the built-in ones.
	RedactPatterns []config.RedactPattern

	// Writer is the output destination. Defaults to os.Stdout.
	Writer io.Writer
}

// Logger wraps slog with mandatory redaction. Redaction runs inside
// the handler, so installing the logger with slog.SetDefault extends
// it to every package that logs through slog.Default().
type Logger struct {
	slog     *slog.Logger
	redactor *Redactor
	level    slog.Level
	format   LogFormat
}

// New creates a new Logger from the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("parsing log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	redactor := NewRedactor(cfg.RedactPatterns)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var inner slog.Handler
	switch format {
	case FormatText:
		inner = slog.NewTextHandler(writer, opts)
	default:
		inner = slog.NewJSONHandler(writer, opts)
	}

	handler := &redactingHandler{inner: inner, redactor: redactor}

	return &Logger{
		slog:     slog.New(handler),
		redactor: redactor,
		level:    level,
		format:   format,
	}, nil
}

// Slog returns the underlying slog.Logger, suitable for
// slog.SetDefault so that component loggers built with
// slog.Default().With(...) share the redacting handler.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Debug logs a debug-level message.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info logs an info-level message.
func (l *Logger) Info(msg string, args ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, args...)
}

// Warn logs a warning-level message.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, args...)
}

// Error logs an error-level message.
func (l *Logger) Error(msg string, args ...any) {
	l.log(context.Background(), slog.LevelError, msg, args...)
}

// DebugContext logs a debug-level message with fields from the context.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logWithContext(ctx, slog.LevelDebug, msg, args...)
}

// InfoContext logs an info-level message with fields from the context.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logWithContext(ctx, slog.LevelInfo, msg, args...)
}

// WarnContext logs a warning-level message with fields from the context.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logWithContext(ctx, slog.LevelWarn, msg, args...)
}

// ErrorContext logs an error-level message with fields from the context.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logWithContext(ctx, slog.LevelError, msg, args...)
}

// log is the internal logging method. Redaction happens in the
// handler, so this only gates on the level before handing off.
func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.slog.Enabled(ctx, level) {
		return
	}
	l.slog.Log(ctx, level, msg, args...)
}

// logWithContext logs with fields extracted from the context prepended
// to the explicit arguments.
func (l *Logger) logWithContext(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.slog.Enabled(ctx, level) {
		return
	}
	contextFields := extractContextFields(ctx)
	allArgs := append(contextFields, args...)
	l.slog.Log(ctx, level, msg, allArgs...)
}

// With returns a new Logger with the given fields attached to every
// record. The fields pass through redaction once, here.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:     l.slog.With(args...),
		redactor: l.redactor,
		level:    l.level,
		format:   l.format,
	}
}

// WithContext returns a new Logger carrying the context's fields.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	contextFields := extractContextFields(ctx)
	if len(contextFields) == 0 {
		return l
	}
	return l.With(contextFields...)
}

// redactingHandler wraps an slog.Handler and scrubs every record
// before it reaches the inner handler. Attrs attached via WithAttrs
// are scrubbed once at attachment time, not on every record.
type redactingHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	// Rebuild the record with the same PC so AddSource still resolves.
	out := slog.NewRecord(rec.Time, rec.Level, h.redactor.RedactString(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactor.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactor.redactAttr(a)
	}
	return &redactingHandler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// parseFormat converts a string format to LogFormat.
func parseFormat(format string) (LogFormat, error) {
	switch strings.ToLower(format) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", format)
	}
}
