// Package observe provides observability primitives for the streaming
// transcription reconciliation core: OpenTelemetry metrics, distributed
// tracing, and a [Logger] helper that tags slog records with the active
// span's trace and span ids. Log records are not forwarded into the spans
// themselves.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
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

// meterName is the instrumentation scope name used for all STRC metrics.
const meterName = "github.com/voxreconcile/strc"

// Metrics holds all OpenTelemetry metric instruments used by the
// reconciliation core and the decode window controller. All fields are
// safe for concurrent use — the underlying OTel types handle their own
// synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// MergeDuration tracks how long a single Core.Merge call takes
	// end-to-end (decide + reconcile + clean + finalize + cursor sweep).
	MergeDuration metric.Float64Histogram

	// DecodeDuration tracks the decode window controller's external
	// Decoder.Decode call latency.
	DecodeDuration metric.Float64Histogram

	// --- Counters ---

	// WordsAdded counts words appended with no prior overlap.
	WordsAdded metric.Int64Counter

	// WordsReplaced counts incoming words inserted in place of dropped
	// stored words (ReplaceAll or PartialReplace branches).
	WordsReplaced metric.Int64Counter

	// WordsKeptStable counts stored words retained this merge without being
	// replaced (Keep, and the agreed prefix of PartialReplace). Finalized,
	// user-locked and same-sequence words are counted too, although their
	// stability counters do not change.
	WordsKeptStable metric.Int64Counter

	// WordsFinalized counts words promoted to finalized by the Finalizer.
	WordsFinalized metric.Int64Counter

	// SegmentsProcessed counts Core.Merge invocations.
	SegmentsProcessed metric.Int64Counter

	// DecodeFailures counts failed external decoder invocations, including
	// those rejected by an open circuit breaker.
	DecodeFailures metric.Int64Counter

	// PatchDecodes counts boundary patch re-decodes performed.
	PatchDecodes metric.Int64Counter

	// --- Gauges ---

	// CursorTime reports the current mature_cursor_time in seconds.
	CursorTime metric.Float64Gauge

	// LeftContextSeconds reports the decode window controller's current
	// adaptive left-context duration.
	LeftContextSeconds metric.Float64Gauge

	// WPMRolling reports the current rolling words-per-minute stat.
	WPMRolling metric.Float64Gauge
}

// latencyBuckets defines histogram bucket boundaries (in seconds) tuned for
// sub-second reconciliation work and multi-second decode round trips.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.MergeDuration, err = m.Float64Histogram("strc.merge.duration",
		metric.WithDescription("Latency of a single reconciliation merge."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DecodeDuration, err = m.Float64Histogram("strc.decode.duration",
		metric.WithDescription("Latency of external decoder invocations."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.WordsAdded, err = m.Int64Counter("strc.words.added",
		metric.WithDescription("Words appended with no prior overlap."),
	); err != nil {
		return nil, err
	}
	if met.WordsReplaced, err = m.Int64Counter("strc.words.replaced",
		metric.WithDescription("Incoming words inserted in place of dropped stored words."),
	); err != nil {
		return nil, err
	}
	if met.WordsKeptStable, err = m.Int64Counter("strc.words.kept_stable",
		metric.WithDescription("Stored words retained through a merge without being replaced."),
	); err != nil {
		return nil, err
	}
	if met.WordsFinalized, err = m.Int64Counter("strc.words.finalized",
		metric.WithDescription("Words promoted to finalized."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsProcessed, err = m.Int64Counter("strc.segments.processed",
		metric.WithDescription("Total Core.Merge invocations."),
	); err != nil {
		return nil, err
	}
	if met.DecodeFailures, err = m.Int64Counter("strc.decode.failures",
		metric.WithDescription("Failed or circuit-rejected decoder invocations."),
	); err != nil {
		return nil, err
	}
	if met.PatchDecodes, err = m.Int64Counter("strc.patch_decodes",
		metric.WithDescription("Boundary patch re-decodes performed."),
	); err != nil {
		return nil, err
	}

	if met.CursorTime, err = m.Float64Gauge("strc.cursor.time",
		metric.WithDescription("Current mature_cursor_time in seconds."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.LeftContextSeconds, err = m.Float64Gauge("strc.window.lc_seconds",
		metric.WithDescription("Current adaptive left-context duration."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.WPMRolling, err = m.Float64Gauge("strc.wpm.rolling",
		metric.WithDescription("Current rolling words-per-minute estimate."),
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordMerge records the outcome of a single Core.Merge call: its duration
// plus the word-count deltas it produced.
func (m *Metrics) RecordMerge(ctx context.Context, sessionID string, durationSeconds float64, added, replaced, keptStable, finalized int, cursorSeconds, wpmRolling float64) {
	attrs := metric.WithAttributes(attribute.String("session_id", sessionID))
	m.SegmentsProcessed.Add(ctx, 1, attrs)
	m.MergeDuration.Record(ctx, durationSeconds, attrs)
	if added > 0 {
		m.WordsAdded.Add(ctx, int64(added), attrs)
	}
	if replaced > 0 {
		m.WordsReplaced.Add(ctx, int64(replaced), attrs)
	}
	if keptStable > 0 {
		m.WordsKeptStable.Add(ctx, int64(keptStable), attrs)
	}
	if finalized > 0 {
		m.WordsFinalized.Add(ctx, int64(finalized), attrs)
	}
	m.CursorTime.Record(ctx, cursorSeconds, attrs)
	m.WPMRolling.Record(ctx, wpmRolling, attrs)
}

// RecordDecodeFailure is a convenience method that records a decode failure
// counter increment with the standard attribute set.
func (m *Metrics) RecordDecodeFailure(ctx context.Context, reason string) {
	m.DecodeFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
