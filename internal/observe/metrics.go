// Package observe provides the observability primitives shared by mockhire:
// OpenTelemetry metrics, tracing helpers, trace-aware logging and HTTP
// middleware for the status server.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed for
// scraping through the Prometheus exporter installed by [InitProvider]. A
// package-level [DefaultMetrics] instance is available for wiring; tests
// should use [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all mockhire metrics.
const meterName = "github.com/mockhire/mockhire"

// Metrics holds all OpenTelemetry metric instruments for the application.
type Metrics struct {
	// --- Interview sessions ---

	// SessionStarts counts call start attempts. Attributes:
	//   attribute.String("strategy", ...), attribute.String("status", ...)
	SessionStarts metric.Int64Counter

	// ActiveCalls tracks the number of live voice calls.
	ActiveCalls metric.Int64UpDownCounter

	// SessionDuration tracks how long calls lasted, from call-start to
	// call-end.
	SessionDuration metric.Float64Histogram

	// FallbackTimeouts counts start attempts abandoned by the fallback timer.
	FallbackTimeouts metric.Int64Counter

	// VoiceEvents counts events received from the voice-call service.
	// Attribute: attribute.String("event", ...)
	VoiceEvents metric.Int64Counter

	// --- Backend ---

	// BackendRequests counts backend API calls. Attributes:
	//   attribute.String("endpoint", ...), attribute.String("status", ...)
	BackendRequests metric.Int64Counter

	// BackendDuration tracks backend request latency. Attribute:
	//   attribute.String("endpoint", ...)
	BackendDuration metric.Float64Histogram

	// BreakerTransitions counts circuit breaker state changes. Attributes:
	//   attribute.String("breaker", ...), attribute.String("state", ...)
	BreakerTransitions metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks status server request time. Attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds for HTTP round trips.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// sessionBuckets are histogram boundaries in seconds for interview calls,
// which last minutes.
var sessionBuckets = []float64{
	15, 30, 60, 120, 180, 300, 450, 600, 900,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionStarts, err = m.Int64Counter("mockhire.session.starts",
		metric.WithDescription("Call start attempts by strategy and status."),
	); err != nil {
		return nil, err
	}
	if met.ActiveCalls, err = m.Int64UpDownCounter("mockhire.session.calls.active",
		metric.WithDescription("Number of live voice calls."),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("mockhire.session.duration",
		metric.WithDescription("Duration of interview calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sessionBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FallbackTimeouts, err = m.Int64Counter("mockhire.session.fallback_timeouts",
		metric.WithDescription("Start attempts abandoned because the interviewer never spoke."),
	); err != nil {
		return nil, err
	}
	if met.VoiceEvents, err = m.Int64Counter("mockhire.voice.events",
		metric.WithDescription("Events received from the voice-call service by event name."),
	); err != nil {
		return nil, err
	}

	if met.BackendRequests, err = m.Int64Counter("mockhire.backend.requests",
		metric.WithDescription("Backend API requests by endpoint and status."),
	); err != nil {
		return nil, err
	}
	if met.BackendDuration, err = m.Float64Histogram("mockhire.backend.duration",
		metric.WithDescription("Backend API latency by endpoint."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("mockhire.backend.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by breaker and new state."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("mockhire.http.request.duration",
		metric.WithDescription("Status server request latency by method and path."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
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
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
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

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordSessionStart records one start attempt.
func (m *Metrics) RecordSessionStart(ctx context.Context, strategy, status string) {
	m.SessionStarts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("strategy", strategy),
			attribute.String("status", status),
		),
	)
}

// RecordVoiceEvent records one event received from the voice-call service.
func (m *Metrics) RecordVoiceEvent(ctx context.Context, event string) {
	m.VoiceEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

// RecordBackendRequest records the outcome and latency of one backend call.
func (m *Metrics) RecordBackendRequest(ctx context.Context, endpoint, status string, d time.Duration) {
	m.BackendRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("endpoint", endpoint),
			attribute.String("status", status),
		),
	)
	m.BackendDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("endpoint", endpoint)),
	)
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, breaker, state string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("breaker", breaker),
			attribute.String("state", state),
		),
	)
}
