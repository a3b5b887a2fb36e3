package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	testTraceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	testTraceIDHex  = "4bf92f3577b34da6a3ce929d0e0e4736"
	testSpanIDHex   = "00f067aa0ba902b7"
)

// installPropagator installs the W3C propagator and restores the
// previous one when the test finishes. Outside tests, New installs it.
func installPropagator(t *testing.T) {
	t.Helper()

	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })
}

// TestExtract tests extracting trace context from HTTP headers.
func TestExtract(t *testing.T) {
	installPropagator(t)

	t.Run("with traceparent header", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("traceparent", testTraceParent)

		ctx := Extract(context.Background(), headers)

		if got := TraceID(ctx); got != testTraceIDHex {
			t.Errorf("TraceID() = %q, want %q", got, testTraceIDHex)
		}
		if got := SpanID(ctx); got != testSpanIDHex {
			t.Errorf("SpanID() = %q, want %q", got, testSpanIDHex)
		}
		if !IsSampled(ctx) {
			t.Error("IsSampled() = false, want true for flags 01")
		}
	})

	t.Run("without traceparent header", func(t *testing.T) {
		ctx := Extract(context.Background(), http.Header{})

		if SpanContext(ctx).IsValid() {
			t.Error("expected invalid span context without traceparent")
		}
	})
}

// TestInject tests injecting trace context into HTTP headers.
func TestInject(t *testing.T) {
	installPropagator(t)

	t.Run("with span context", func(t *testing.T) {
		ctx := trace.ContextWithSpanContext(context.Background(), testSpanContext(t))

		headers := http.Header{}
		Inject(ctx, headers)

		if got := headers.Get("traceparent"); got != testTraceParent {
			t.Errorf("traceparent = %q, want %q", got, testTraceParent)
		}
	})

	t.Run("without span context", func(t *testing.T) {
		headers := http.Header{}
		Inject(context.Background(), headers)

		if got := headers.Get("traceparent"); got != "" {
			t.Errorf("traceparent = %q, want empty", got)
		}
	})
}

// TestExtractFromMap tests extraction from a string map carrier.
func TestExtractFromMap(t *testing.T) {
	installPropagator(t)

	carrier := map[string]string{"traceparent": testTraceParent}

	ctx := ExtractFromMap(context.Background(), carrier)

	if got := TraceID(ctx); got != testTraceIDHex {
		t.Errorf("TraceID() = %q, want %q", got, testTraceIDHex)
	}
}

// TestInjectToMap tests injection into a string map carrier.
func TestInjectToMap(t *testing.T) {
	installPropagator(t)

	ctx := trace.ContextWithSpanContext(context.Background(), testSpanContext(t))

	carrier := map[string]string{}
	InjectToMap(ctx, carrier)

	if got := carrier["traceparent"]; got != testTraceParent {
		t.Errorf("traceparent = %q, want %q", got, testTraceParent)
	}
}

// TestHTTPMiddleware tests trace extraction and response header echo.
func TestHTTPMiddleware(t *testing.T) {
	installPropagator(t)

	t.Run("with traceparent", func(t *testing.T) {
		var gotTraceID string
		handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotTraceID = TraceID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/v1/context", nil)
		req.Header.Set("traceparent", testTraceParent)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if gotTraceID != testTraceIDHex {
			t.Errorf("handler saw trace ID %q, want %q", gotTraceID, testTraceIDHex)
		}
		if got := rec.Header().Get("X-Trace-ID"); got != testTraceIDHex {
			t.Errorf("X-Trace-ID = %q, want %q", got, testTraceIDHex)
		}
		if got := rec.Header().Get("X-Span-ID"); got != testSpanIDHex {
			t.Errorf("X-Span-ID = %q, want %q", got, testSpanIDHex)
		}
	})

	t.Run("without traceparent", func(t *testing.T) {
		handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Trace-ID"); got != "" {
			t.Errorf("X-Trace-ID = %q, want empty", got)
		}
	})
}

// TestValidateTraceParent tests traceparent header validation.
func TestValidateTraceParent(t *testing.T) {
	tests := []struct {
		name        string
		traceparent string
		want        bool
	}{
		{
			name:        "valid header",
			traceparent: testTraceParent,
			want:        true,
		},
		{
			name:        "valid not sampled",
			traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-00",
			want:        true,
		},
		{
			name:        "empty string",
			traceparent: "",
			want:        false,
		},
		{
			name:        "too few parts",
			traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7",
			want:        false,
		},
		{
			name:        "too many parts",
			traceparent: testTraceParent + "-extra",
			want:        false,
		},
		{
			name:        "short version",
			traceparent: "0-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			want:        false,
		},
		{
			name:        "short trace ID",
			traceparent: "00-4bf92f3577b34da6a3ce929d0e0e473-00f067aa0ba902b7-01",
			want:        false,
		},
		{
			name:        "short parent ID",
			traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b-01",
			want:        false,
		},
		{
			name:        "long flags",
			traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-001",
			want:        false,
		},
		{
			name:        "non-hex trace ID",
			traceparent: "00-4bf92f3577b34da6a3ce929d0e0e473z-00f067aa0ba902b7-01",
			want:        false,
		},
		{
			name:        "all-zero trace ID",
			traceparent: "00-00000000000000000000000000000000-00f067aa0ba902b7-01",
			want:        false,
		},
		{
			name:        "all-zero parent ID",
			traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-0000000000000000-01",
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateTraceParent(tt.traceparent); got != tt.want {
				t.Errorf("ValidateTraceParent(%q) = %v, want %v", tt.traceparent, got, tt.want)
			}
		})
	}
}

// TestParseTraceParent tests traceparent parsing.
func TestParseTraceParent(t *testing.T) {
	t.Run("valid header", func(t *testing.T) {
		version, traceID, parentID, flags, valid := ParseTraceParent(testTraceParent)
		if !valid {
			t.Fatal("ParseTraceParent() valid = false")
		}
		if version != "00" {
			t.Errorf("version = %q", version)
		}
		if traceID != testTraceIDHex {
			t.Errorf("traceID = %q", traceID)
		}
		if parentID != testSpanIDHex {
			t.Errorf("parentID = %q", parentID)
		}
		if flags != "01" {
			t.Errorf("flags = %q", flags)
		}
	})

	t.Run("invalid header", func(t *testing.T) {
		version, traceID, parentID, flags, valid := ParseTraceParent("garbage")
		if valid {
			t.Error("ParseTraceParent() valid = true for garbage")
		}
		if version != "" || traceID != "" || parentID != "" || flags != "" {
			t.Error("expected empty components for invalid header")
		}
	})
}

// TestIsSampledFromTraceParent tests the sampled bit.
func TestIsSampledFromTraceParent(t *testing.T) {
	tests := []struct {
		name        string
		traceparent string
		want        bool
	}{
		{
			name:        "sampled",
			traceparent: testTraceParent,
			want:        true,
		},
		{
			name:        "not sampled",
			traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-00",
			want:        false,
		},
		{
			name:        "all flag bits set",
			traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-ff",
			want:        true,
		},
		{
			name:        "invalid header",
			traceparent: "garbage",
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSampledFromTraceParent(tt.traceparent); got != tt.want {
				t.Errorf("IsSampledFromTraceParent(%q) = %v, want %v", tt.traceparent, got, tt.want)
			}
		})
	}
}

// TestIsHexString tests hex character validation.
func TestIsHexString(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"4bf92f35", true},
		{"ABCDEF", true},
		{"0123456789abcdef", true},
		{"", true},
		{"xyz", false},
		{"4bf9-2f35", false},
		{"4bf9 2f35", false},
	}

	for _, tt := range tests {
		if got := isHexString(tt.input); got != tt.want {
			t.Errorf("isHexString(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
