// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, distributed tracing, structured logging, and HTTP
// middleware that ties them together.
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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/plotwright/plotwright"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// StageDuration tracks per-pipeline-stage processing latency. Use with
	// attribute: attribute.String("stage", ...)
	StageDuration metric.Float64Histogram

	// EpisodeDuration tracks end-to-end episode processing latency.
	EpisodeDuration metric.Float64Histogram

	// --- Counters ---

	// ModelCalls counts model completions. Use with attributes:
	//   attribute.String("purpose", ...), attribute.String("status", ...)
	ModelCalls metric.Int64Counter

	// ModelTokens counts tokens consumed and produced. Use with attributes:
	//   attribute.String("purpose", ...), attribute.String("kind", "prompt"|"completion")
	ModelTokens metric.Int64Counter

	// ParseRepairs counts model responses that needed JSON repair before they
	// parsed. Use with attribute: attribute.String("outcome", "repaired"|"failed")
	ParseRepairs metric.Int64Counter

	// EpisodesProcessed counts finished episode runs. Use with attribute:
	//   attribute.String("status", "ok"|"failed")
	EpisodesProcessed metric.Int64Counter

	// --- Error counters ---

	// StoreErrors counts knowledge-store write and delete failures. Use with
	// attributes: attribute.String("collection", ...), attribute.String("op", ...)
	StoreErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveEpisodes tracks the number of episodes currently in flight.
	ActiveEpisodes metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// model-call-bound stages, which run seconds to minutes rather than
// milliseconds.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.StageDuration, err = m.Float64Histogram("plotwright.pipeline.stage.duration",
		metric.WithDescription("Latency of one pipeline stage by stage name."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EpisodeDuration, err = m.Float64Histogram("plotwright.pipeline.episode.duration",
		metric.WithDescription("End-to-end episode processing latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ModelCalls, err = m.Int64Counter("plotwright.model.calls",
		metric.WithDescription("Total model completions by purpose and status."),
	); err != nil {
		return nil, err
	}
	if met.ModelTokens, err = m.Int64Counter("plotwright.model.tokens",
		metric.WithDescription("Total model tokens by purpose and kind."),
	); err != nil {
		return nil, err
	}
	if met.ParseRepairs, err = m.Int64Counter("plotwright.normalize.repairs",
		metric.WithDescription("Model responses that needed JSON repair, by outcome."),
	); err != nil {
		return nil, err
	}
	if met.EpisodesProcessed, err = m.Int64Counter("plotwright.episodes.processed",
		metric.WithDescription("Finished episode runs by status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.StoreErrors, err = m.Int64Counter("plotwright.knowledge.errors",
		metric.WithDescription("Knowledge-store failures by collection and operation."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveEpisodes, err = m.Int64UpDownCounter("plotwright.episodes.active",
		metric.WithDescription("Number of episodes currently being processed."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("plotwright.http.request.duration",
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

// RecordStage records one pipeline stage duration in seconds.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	m.StageDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordModelCall records a model completion counter increment with the
// standard attribute set.
func (m *Metrics) RecordModelCall(ctx context.Context, purpose, status string) {
	m.ModelCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("purpose", purpose),
			attribute.String("status", status),
		),
	)
}

// RecordModelTokens records token usage for one model call.
func (m *Metrics) RecordModelTokens(ctx context.Context, purpose string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		m.ModelTokens.Add(ctx, int64(promptTokens),
			metric.WithAttributes(
				attribute.String("purpose", purpose),
				attribute.String("kind", "prompt"),
			),
		)
	}
	if completionTokens > 0 {
		m.ModelTokens.Add(ctx, int64(completionTokens),
			metric.WithAttributes(
				attribute.String("purpose", purpose),
				attribute.String("kind", "completion"),
			),
		)
	}
}

// RecordParseRepair records that a model response needed JSON repair.
func (m *Metrics) RecordParseRepair(ctx context.Context, outcome string) {
	m.ParseRepairs.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordStoreError records a knowledge-store failure.
func (m *Metrics) RecordStoreError(ctx context.Context, collection, op string) {
	m.StoreErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("collection", collection),
			attribute.String("op", op),
		),
	)
}

// RecordEpisode records one finished episode run.
func (m *Metrics) RecordEpisode(ctx context.Context, status string) {
	m.EpisodesProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
