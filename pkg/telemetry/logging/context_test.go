package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestContextFields_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		set  func(context.Context, string) context.Context
		get  func(context.Context) (string, bool)
	}{
		{"request_id", WithRequestID, GetRequestID},
		{"agent_id", WithAgentID, GetAgentID},
		{"intent", WithIntent, GetIntent},
		{"policy_id", WithPolicyID, GetPolicyID},
		{"trace_id", WithTraceID, GetTraceID},
		{"span_id", WithSpanID, GetSpanID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.set(context.Background(), "value-1")

			got, ok := tt.get(ctx)
			if !ok {
				t.Fatal("Expected value present")
			}
			if got != "value-1" {
				t.Errorf("Got %q, want %q", got, "value-1")
			}

			if _, ok := tt.get(context.Background()); ok {
				t.Error("Expected value absent on empty context")
			}
		})
	}
}

func TestExtractContextFields(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		if fields := extractContextFields(context.Background()); len(fields) != 0 {
			t.Errorf("Expected no fields, got %v", fields)
		}
	})

	t.Run("full context in fixed order", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithSpanID(ctx, "span-1")
		ctx = WithRequestID(ctx, "req-1")
		ctx = WithIntent(ctx, "loan_assessment")
		ctx = WithAgentID(ctx, "loan-agent")
		ctx = WithPolicyID(ctx, "loan_assessment@3")
		ctx = WithTraceID(ctx, "trace-1")

		fields := extractContextFields(ctx)
		want := []any{
			"request_id", "req-1",
			"agent_id", "loan-agent",
			"intent", "loan_assessment",
			"policy_id", "loan_assessment@3",
			"trace_id", "trace-1",
			"span_id", "span-1",
		}

		if len(fields) != len(want) {
			t.Fatalf("Got %d fields, want %d: %v", len(fields), len(want), fields)
		}
		for i := range want {
			if fields[i] != want[i] {
				t.Errorf("fields[%d] = %v, want %v", i, fields[i], want[i])
			}
		}
	})

	t.Run("partial context", func(t *testing.T) {
		ctx := WithAgentID(context.Background(), "support-agent")

		fields := extractContextFields(ctx)
		if len(fields) != 2 || fields[0] != "agent_id" || fields[1] != "support-agent" {
			t.Errorf("Unexpected fields: %v", fields)
		}
	})
}

func TestContextLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{
		Level:  "debug",
		Format: "json",
		Writer: buf,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-55")
	ctx = WithAgentID(ctx, "loan-agent")

	cl := NewContextLogger(ctx, logger)

	t.Run("levels carry context fields", func(t *testing.T) {
		logCalls := []struct {
			name string
			fn   func(string, ...any)
		}{
			{"debug", cl.Debug},
			{"info", cl.Info},
			{"warn", cl.Warn},
			{"error", cl.Error},
		}

		for _, call := range logCalls {
			buf.Reset()
			call.fn("stage complete", "stage", "policy")

			output := buf.String()
			if !strings.Contains(output, "req-55") || !strings.Contains(output, "loan-agent") {
				t.Errorf("%s: missing context fields: %s", call.name, output)
			}
			if !strings.Contains(output, `"stage":"policy"`) {
				t.Errorf("%s: missing explicit arg: %s", call.name, output)
			}
		}
	})

	t.Run("With adds persistent fields", func(t *testing.T) {
		buf.Reset()
		cl.With("component", "proxy").Info("handled")

		output := buf.String()
		if !strings.Contains(output, `"component":"proxy"`) {
			t.Errorf("Missing With field: %s", output)
		}
		if !strings.Contains(output, "req-55") {
			t.Errorf("Missing context field: %s", output)
		}
	})
}
