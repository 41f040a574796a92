package observe

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// installTestTracer swaps the global tracer provider for an in-memory one so
// spans started through the package helpers can be inspected.
func installTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })
	return exp
}

func TestCorrelationID_EmptyWithoutSpan(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}
}

func TestCorrelationID_IsTheTraceID(t *testing.T) {
	installTestTracer(t)

	ctx, span := StartSpan(context.Background(), "dictation.toggle")
	defer span.End()

	cid := CorrelationID(ctx)
	if len(cid) != 32 {
		t.Fatalf("correlation ID length = %d, want 32", len(cid))
	}
	for _, c := range cid {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("correlation ID contains non-hex character %q", c)
		}
	}
}

func TestCorrelationID_DistinctPerSession(t *testing.T) {
	installTestTracer(t)

	// Every toggle opens a fresh trace; sessions must never share an ID.
	ids := make(map[string]struct{}, 100)
	for range 100 {
		ctx, span := StartSpan(context.Background(), "dictation.toggle")
		cid := CorrelationID(ctx)
		span.End()
		if _, dup := ids[cid]; dup {
			t.Fatalf("duplicate correlation ID: %s", cid)
		}
		ids[cid] = struct{}{}
	}
}

func TestStartSpan_RecordsNamedSpan(t *testing.T) {
	exp := installTestTracer(t)

	ctx, span := StartSpan(context.Background(), "asr.stop_flush")
	if CorrelationID(ctx) == "" {
		t.Error("StartSpan did not open a trace")
	}
	span.End()

	spans := exp.GetSpans()
	if len(spans) == 0 {
		t.Fatal("no spans recorded")
	}
	if spans[0].Name != "asr.stop_flush" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "asr.stop_flush")
	}
}

func TestLogger_AttachesTraceToSessionLogs(t *testing.T) {
	installTestTracer(t)

	buf := captureLogs(t)

	ctx, span := StartSpan(context.Background(), "dictation.session")
	defer span.End()

	Logger(ctx).Info("session finalized", "chars", 42)

	logged := buf.String()
	if !strings.Contains(logged, "trace_id=") {
		t.Errorf("log output missing trace_id: %s", logged)
	}
	if !strings.Contains(logged, "span_id=") {
		t.Errorf("log output missing span_id: %s", logged)
	}
}

func TestLogger_PlainOutsideASession(t *testing.T) {
	buf := captureLogs(t)

	Logger(context.Background()).Info("daemon ready")

	if logged := buf.String(); strings.Contains(logged, "trace_id") {
		t.Errorf("log output should not carry trace_id outside a span: %s", logged)
	}
}

func TestTracer_ReturnsValidTracer(t *testing.T) {
	tr := Tracer()
	if tr == nil {
		t.Fatal("Tracer() returned nil")
	}
	_ = trace.Tracer(tr)
}
