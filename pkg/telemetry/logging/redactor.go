package logging

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"mercator-hq/ganymede/pkg/config"
)

// Redactor scrubs credentials and personal data from log output.
// Context payloads flowing through the proxy routinely contain customer
// records, so redaction is not optional: every logger in the process
// writes through a Redactor.
type Redactor struct {
	patterns map[string]*redactPattern

	// order fixes the application sequence so overlapping patterns
	// produce the same output on every run.
	order []string
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternJWT         = "jwt"
	PatternDSN         = "dsn"
	PatternEmail       = "email"
	PatternSSN         = "ssn"
	PatternCreditCard  = "credit_card"
	PatternPhone       = "phone"
	PatternIPv4        = "ipv4"
	PatternPassword    = "password"
)

// NewRedactor creates a Redactor with the built-in patterns plus any
// custom patterns from configuration. A custom pattern with the same
// name as a built-in replaces it. Invalid custom regexes are skipped;
// configuration validation reports them before a logger is ever built.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{
		patterns: make(map[string]*redactPattern),
	}

	r.addDefaultPatterns()

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns[p.Name] = &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		}
	}

	r.order = make([]string, 0, len(r.patterns))
	for name := range r.patterns {
		r.order = append(r.order, name)
	}
	sort.Strings(r.order)

	return r
}

// addDefaultPatterns adds the built-in redaction patterns.
func (r *Redactor) addDefaultPatterns() {
	patterns := map[string]struct {
		regex       string
		replacement string
	}{
		// Authorization header values
		PatternBearerToken: {
			regex:       `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
			replacement: "Bearer ***",
		},

		// JWT compact serialization (header.payload.signature)
		PatternJWT: {
			regex:       `\beyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]*`,
			replacement: "eyJ***",
		},

		// Database and cache connection strings carry credentials
		PatternDSN: {
			regex:       `(postgres|postgresql|mysql|redis|rediss)://[^\s'"]+`,
			replacement: "$1://***",
		},

		// Email addresses (domain kept for debugging)
		PatternEmail: {
			regex:       `[a-zA-Z0-9._%+-]+@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`,
			replacement: "***@$1",
		},

		// Social Security Numbers
		PatternSSN: {
			regex:       `\b\d{3}[-\s]?\d{2}[-\s]?\d{4}\b`,
			replacement: "***-**-****",
		},

		// Credit card numbers
		PatternCreditCard: {
			regex:       `\b(?:\d[ -]*?){13,16}\b`,
			replacement: "****-****-****-****",
		},

		// Phone numbers
		PatternPhone: {
			regex:       `\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`,
			replacement: "***-***-****",
		},

		// IPv4 addresses
		PatternIPv4: {
			regex:       `\b(?:\d{1,3}\.){3}\d{1,3}\b`,
			replacement: "*.*.*.*",
		},

		// password/secret key=value fragments inside messages
		PatternPassword: {
			regex:       `(?i)(password|passwd|pwd|secret)[:=]\s*[^\s]+`,
			replacement: "$1: ***",
		},
	}

	for name, p := range patterns {
		r.patterns[name] = &redactPattern{
			name:        name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		}
	}
}

// RedactString applies every pattern to a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	redacted := value
	for _, name := range r.order {
		pattern := r.patterns[name]
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}

	return redacted
}

// RedactArgs redacts variadic log arguments in key1, value1, key2,
// value2 form. Values under sensitive keys are masked entirely; string
// values elsewhere run through the patterns.
func (r *Redactor) RedactArgs(args ...any) []any {
	if len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		if key, ok := redacted[i-1].(string); ok && r.isSensitiveKey(key) {
			redacted[i] = r.maskValue(redacted[i])
			continue
		}
		if str, ok := redacted[i].(string); ok {
			redacted[i] = r.RedactString(str)
		}
	}

	return redacted
}

// redactAttr redacts a single slog attribute, recursing into groups.
func (r *Redactor) redactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		members := v.Group()
		out := make([]slog.Attr, len(members))
		for i, m := range members {
			out[i] = r.redactAttr(m)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if r.isSensitiveKey(a.Key) {
		if v.Kind() == slog.KindString {
			return slog.String(a.Key, r.maskString(v.String()))
		}
		return slog.String(a.Key, "***")
	}

	if v.Kind() == slog.KindString {
		return slog.String(a.Key, r.RedactString(v.String()))
	}

	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey reports whether a key name indicates a value that must
// never appear in logs, regardless of its content.
func (r *Redactor) isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"password", "passwd", "pwd",
		"secret", "token", "bearer",
		"authorization", "auth",
		"dsn", "api_key", "apikey",
		"ssn", "social_security",
		"credit_card", "creditcard",
		"private_key", "privatekey",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}

	return false
}

// maskValue masks a value under a sensitive key.
func (r *Redactor) maskValue(value any) any {
	if s, ok := value.(string); ok {
		return r.maskString(s)
	}
	return "***"
}

// maskString keeps a short prefix for identification, nothing more.
func (r *Redactor) maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "***"
}
