// Package observe provides application-wide observability primitives for
// SocialSync: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all SocialSync metrics.
const meterName = "github.com/MrWong99/socialsync"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// OracleDuration tracks LLM completion latency.
	OracleDuration metric.Float64Histogram

	// RetrievalDuration tracks semantic search latency against the record
	// store.
	RetrievalDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// Turns counts completed conversation turns. Use with attribute:
	//   attribute.String("branch", "conversing"|"searching"|"celebrating")
	Turns metric.Int64Counter

	// ProfileUpdates counts taste-summary rewrites by status.
	ProfileUpdates metric.Int64Counter

	// OracleErrors counts LLM call failures. Use with attribute:
	//   attribute.String("stage", ...)
	OracleErrors metric.Int64Counter

	// ActiveSessions tracks the number of live conversation sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries in seconds, sized for
// LLM round-trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.OracleDuration, err = m.Float64Histogram("socialsync.oracle.duration",
		metric.WithDescription("Latency of LLM completions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RetrievalDuration, err = m.Float64Histogram("socialsync.retrieval.duration",
		metric.WithDescription("Latency of record store searches."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("socialsync.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.Turns, err = m.Int64Counter("socialsync.turns",
		metric.WithDescription("Completed conversation turns by resolved branch."),
	); err != nil {
		return nil, err
	}
	if met.ProfileUpdates, err = m.Int64Counter("socialsync.profile.updates",
		metric.WithDescription("Taste summary rewrites by status."),
	); err != nil {
		return nil, err
	}
	if met.OracleErrors, err = m.Int64Counter("socialsync.oracle.errors",
		metric.WithDescription("LLM call failures by stage."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("socialsync.active_sessions",
		metric.WithDescription("Number of live conversation sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

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

// RecordTurn records a completed conversation turn for the given branch.
func (m *Metrics) RecordTurn(ctx context.Context, branch string) {
	m.Turns.Add(ctx, 1,
		metric.WithAttributes(attribute.String("branch", branch)),
	)
}

// RecordProfileUpdate records a taste-summary rewrite attempt.
func (m *Metrics) RecordProfileUpdate(ctx context.Context, status string) {
	m.ProfileUpdates.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordOracleError records an LLM call failure for the given stage.
func (m *Metrics) RecordOracleError(ctx context.Context, stage string) {
	m.OracleErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}
