// Package observe provides application-wide observability primitives for
// voxd: OpenTelemetry metrics, distributed tracing, structured logging, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxd metrics.
const meterName = "github.com/voxd/voxd"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// ASRDuration tracks speech-to-text transcription latency.
	ASRDuration metric.Float64Histogram

	// CorrectionDuration tracks LLM correction latency.
	CorrectionDuration metric.Float64Histogram

	// SessionDuration tracks end-to-end dictation session length, from the
	// first start to the final text delivery.
	SessionDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// Sessions counts dictation sessions by terminal outcome. Use with
	// attribute: attribute.String("outcome", ...)
	Sessions metric.Int64Counter

	// PartialResults counts interim transcription results delivered to the
	// overlay. Use with attribute: attribute.String("provider", ...)
	PartialResults metric.Int64Counter

	// Recoveries counts stale-session recovery attempts. Use with attribute:
	//   attribute.String("status", ...)
	Recoveries metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live dictation sessions. With a
	// single orchestrator this is 0 or 1; it exists so a dashboard can show
	// recording state at a glance.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for dictation-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ASRDuration, err = m.Float64Histogram("voxd.asr.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CorrectionDuration, err = m.Float64Histogram("voxd.correction.duration",
		metric.WithDescription("Latency of LLM text correction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("voxd.session.duration",
		metric.WithDescription("End-to-end dictation session duration."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("voxd.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.Sessions, err = m.Int64Counter("voxd.sessions",
		metric.WithDescription("Total dictation sessions by terminal outcome."),
	); err != nil {
		return nil, err
	}
	if met.PartialResults, err = m.Int64Counter("voxd.partial_results",
		metric.WithDescription("Total interim transcription results by provider."),
	); err != nil {
		return nil, err
	}
	if met.Recoveries, err = m.Int64Counter("voxd.recoveries",
		metric.WithDescription("Total stale-session recovery attempts by status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("voxd.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxd.active_sessions",
		metric.WithDescription("Number of live dictation sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxd.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

func statusString(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// RecordTranscription records one ASR provider call: its latency histogram
// sample plus a request counter increment.
func (m *Metrics) RecordTranscription(ctx context.Context, provider string, d time.Duration, ok bool) {
	m.ASRDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("provider", provider)),
	)
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", "asr"),
			attribute.String("status", statusString(ok)),
		),
	)
}

// RecordCorrection records one correction provider call: its latency
// histogram sample plus a request counter increment.
func (m *Metrics) RecordCorrection(ctx context.Context, provider string, d time.Duration, ok bool) {
	m.CorrectionDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("provider", provider)),
	)
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", "correction"),
			attribute.String("status", statusString(ok)),
		),
	)
}

// RecordSession records a completed dictation session with its terminal
// outcome and total duration.
func (m *Metrics) RecordSession(ctx context.Context, outcome string, d time.Duration) {
	m.Sessions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
	m.SessionDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordPartial records one interim transcription result delivery.
func (m *Metrics) RecordPartial(ctx context.Context, provider string) {
	m.PartialResults.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordRecovery records a stale-session recovery attempt.
func (m *Metrics) RecordRecovery(ctx context.Context, ok bool) {
	m.Recoveries.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", statusString(ok))),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
