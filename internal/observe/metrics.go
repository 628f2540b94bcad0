// Package observe provides application-wide observability primitives for
// yomu: OpenTelemetry metrics and the Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter is wired in via [InitProvider] so that metrics can be scraped
// from the standard /metrics endpoint. A package-level default [Metrics]
// instance ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all yomu metrics.
const meterName = "github.com/MrWong99/yomu"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SynthesisDuration tracks speech synthesis latency per utterance.
	SynthesisDuration metric.Float64Histogram

	// PlaybackDuration tracks voice playback time per utterance.
	PlaybackDuration metric.Float64Histogram

	// ItemsEnqueued counts text items accepted into guild queues.
	// Use with attribute.String("guild_id", ...).
	ItemsEnqueued metric.Int64Counter

	// ItemsSpoken counts items fully played back.
	ItemsSpoken metric.Int64Counter

	// ItemsDropped counts items discarded due to synthesis or playback
	// failure. Use with attribute.String("stage", "synthesis"|"playback").
	ItemsDropped metric.Int64Counter

	// ActiveSessions tracks the number of live guild reading sessions.
	ActiveSessions metric.Int64UpDownCounter

	// SoundingItems tracks the number of currently sounding items across
	// all guilds. Per guild this must never exceed 1; tests assert the
	// invariant through this gauge.
	SoundingItems metric.Int64UpDownCounter

	// QueueDepth tracks the total number of pending items across guilds.
	QueueDepth metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// utterance synthesis and playback.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthesisDuration, err = m.Float64Histogram("yomu.synthesis.duration",
		metric.WithDescription("Latency of speech synthesis per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("yomu.playback.duration",
		metric.WithDescription("Voice playback time per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ItemsEnqueued, err = m.Int64Counter("yomu.queue.enqueued",
		metric.WithDescription("Total text items accepted into guild queues."),
	); err != nil {
		return nil, err
	}
	if met.ItemsSpoken, err = m.Int64Counter("yomu.queue.spoken",
		metric.WithDescription("Total items fully played back."),
	); err != nil {
		return nil, err
	}
	if met.ItemsDropped, err = m.Int64Counter("yomu.queue.dropped",
		metric.WithDescription("Total items discarded due to synthesis or playback failure."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("yomu.active_sessions",
		metric.WithDescription("Number of live guild reading sessions."),
	); err != nil {
		return nil, err
	}
	if met.SoundingItems, err = m.Int64UpDownCounter("yomu.sounding_items",
		metric.WithDescription("Number of currently sounding items across all guilds."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("yomu.queue.depth",
		metric.WithDescription("Total pending items across all guild queues."),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
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

// guildAttr builds the standard guild_id attribute set.
func guildAttr(guildID string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("guild_id", guildID))
}

// RecordEnqueued records one item accepted into a guild queue.
func (m *Metrics) RecordEnqueued(ctx context.Context, guildID string) {
	m.ItemsEnqueued.Add(ctx, 1, guildAttr(guildID))
	m.QueueDepth.Add(ctx, 1, guildAttr(guildID))
}

// RecordDequeued records one item leaving a guild queue for playback.
func (m *Metrics) RecordDequeued(ctx context.Context, guildID string) {
	m.QueueDepth.Add(ctx, -1, guildAttr(guildID))
}

// RecordSpoken records one item fully played back.
func (m *Metrics) RecordSpoken(ctx context.Context, guildID string, seconds float64) {
	m.ItemsSpoken.Add(ctx, 1, guildAttr(guildID))
	m.PlaybackDuration.Record(ctx, seconds, guildAttr(guildID))
}

// RecordDropped records one item discarded at the given pipeline stage.
func (m *Metrics) RecordDropped(ctx context.Context, guildID, stage string) {
	m.ItemsDropped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("guild_id", guildID),
		attribute.String("stage", stage),
	))
}

// RecordDiscarded records n pending items dropped without playback, e.g.
// when a session is destroyed with a non-empty queue.
func (m *Metrics) RecordDiscarded(ctx context.Context, guildID string, n int) {
	if n <= 0 {
		return
	}
	m.QueueDepth.Add(ctx, -int64(n), guildAttr(guildID))
	m.ItemsDropped.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("guild_id", guildID),
		attribute.String("stage", "discard"),
	))
}

// RecordSynthesis records the latency of one synthesis call.
func (m *Metrics) RecordSynthesis(ctx context.Context, guildID string, seconds float64) {
	m.SynthesisDuration.Record(ctx, seconds, guildAttr(guildID))
}
