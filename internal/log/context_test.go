package log

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithJobID(ctx, "job-1")

	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext = %q, want req-1", got)
	}
	if got := JobIDFromContext(ctx); got != "job-1" {
		t.Errorf("JobIDFromContext = %q, want job-1", got)
	}
}

func TestEmptyContextReturnsEmptyIDs(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext on empty ctx = %q, want empty", got)
	}
	if got := JobIDFromContext(nil); got != "" { //nolint:staticcheck // nil ctx tolerated on purpose
		t.Errorf("JobIDFromContext on nil ctx = %q, want empty", got)
	}
}

func TestWithComponentFromContextCarriesCorrelation(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "testsvc"})

	ctx := ContextWithJobID(context.Background(), "job-42")
	l := WithComponentFromContext(ctx, "jobs")
	l.Info().Msg("working")

	out := buf.String()
	if !strings.Contains(out, `"job_id":"job-42"`) {
		t.Errorf("log line missing job_id: %s", out)
	}
	if !strings.Contains(out, `"component":"jobs"`) {
		t.Errorf("log line missing component: %s", out)
	}
}

// Call sites chain level methods straight off the helpers, so the returned
// logger must be addressable.
func TestHelpersChainWithoutBinding(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "testsvc"})

	ctx := ContextWithRequestID(context.Background(), "req-7")
	WithComponentFromContext(ctx, "api").Info().Msg("inline")
	WithComponent("worker").Warn().Msg("inline")
	FromContext(ctx).Debug().Msg("inline")

	out := buf.String()
	for _, want := range []string{`"component":"api"`, `"component":"worker"`, `"request_id":"req-7"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}
