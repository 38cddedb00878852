package observe

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vango-dev/livestate/pkg/reactive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// install sets o as the core observer for the duration of the test.
func install(t *testing.T, o reactive.Observer) {
	t.Helper()
	prev := reactive.SetObserver(o)
	t.Cleanup(func() { reactive.SetObserver(prev) })
}

// exercise drives every observer callback once or more.
func exercise(t *testing.T) {
	t.Helper()
	root := reactive.MustRoot(map[string]any{
		"a": map[string]any{"b": 1},
		"n": 1,
	})
	reactive.Prop(root, "a.b").Subscribe(func(any) {})
	reactive.Props(root, reactive.Paths("n"), func(v ...any) any { return v[0] }).Subscribe(func(any) {})
	tr := reactive.NewTracker(root, func(v *reactive.View) any {
		return v.Get("n")
	}, reactive.TrackerName("board"))
	tr.Run()

	require.NoError(t, root.Set("a", map[string]any{"b": 2}))
	require.NoError(t, root.Set("n", 2))
	tr.Run()
	tr.SetRoot(map[string]any{"n": 3})
}

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(WithRegistry(reg), WithNamespace("test"), WithConstLabels(prometheus.Labels{"app": "game"}))
	install(t, p)

	exercise(t)

	assert.Equal(t, float64(2), testutil.ToFloat64(p.changesPublished))
	assert.Equal(t, float64(6), testutil.ToFloat64(p.changeDeliveries))
	assert.Equal(t, float64(3), testutil.ToFloat64(p.pathRebinds))
	assert.Equal(t, float64(2), testutil.ToFloat64(p.derivedEmissions))
	assert.Equal(t, float64(2), testutil.ToFloat64(p.trackerPasses.WithLabelValues("board")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.trackerPaths.WithLabelValues("board")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.trackerInvalidated.WithLabelValues("board", "change")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.trackerInvalidated.WithLabelValues("board", "root")))

	n, err := testutil.GatherAndCount(reg, "test_tracker_pass_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrometheusDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheus(WithRegistry(reg))
	assert.Panics(t, func() { NewPrometheus(WithRegistry(reg)) })
	assert.NotPanics(t, func() { NewPrometheus(WithRegistry(reg), WithSubsystem("other")) })
}

type recordedSpan struct {
	name  string
	attrs []attribute.KeyValue
	start time.Time
}

type recordingTracer struct {
	noop.Tracer
	spans []recordedSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	r.spans = append(r.spans, recordedSpan{name: name, attrs: cfg.Attributes(), start: cfg.Timestamp()})
	return r.Tracer.Start(ctx, name, opts...)
}

func (r *recordingTracer) names() []string {
	out := make([]string, len(r.spans))
	for i, s := range r.spans {
		out[i] = s.name
	}
	return out
}

func TestOpenTelemetryObserver(t *testing.T) {
	tracer := &recordingTracer{}
	install(t, NewOpenTelemetry(WithTracer(tracer), WithAttributes(attribute.String("app", "game"))))

	exercise(t)

	assert.Equal(t, []string{
		"livestate.tracker_pass",
		"livestate.tracker_invalidated",
		"livestate.tracker_pass",
		"livestate.tracker_invalidated",
	}, tracer.names())

	first := tracer.spans[0]
	assert.Contains(t, first.attrs, attribute.String("app", "game"))
	assert.Contains(t, first.attrs, attribute.String("livestate.tracker", "board"))
	assert.Contains(t, first.attrs, attribute.Int("livestate.paths", 1))
	assert.False(t, first.start.IsZero())
	assert.Contains(t, tracer.spans[3].attrs, attribute.String("livestate.reason", "root"))
}

func TestOpenTelemetryFilter(t *testing.T) {
	tracer := &recordingTracer{}
	install(t, NewOpenTelemetry(
		WithTracer(tracer),
		WithTrackerFilter(func(name string) bool { return name != "board" }),
	))

	exercise(t)

	assert.Empty(t, tracer.spans)
}

func TestOpenTelemetryDefaultsToGlobalProvider(t *testing.T) {
	o := NewOpenTelemetry(WithTracerName("custom"))
	require.NotNil(t, o.tracer)
	assert.NotPanics(t, func() { o.TrackerPass("x", 1, time.Millisecond) })
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	install(t, NewLog(logger, slog.LevelDebug))

	exercise(t)

	out := buf.String()
	assert.Contains(t, out, `msg="change published"`)
	assert.Contains(t, out, "key=n")
	assert.Contains(t, out, `msg="path rebound" path=a.b depth=0`)
	assert.Contains(t, out, `msg="tracker invalidated" tracker=board reason=root`)
}

func TestLogObserverRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	install(t, NewLog(logger, slog.LevelDebug))

	exercise(t)

	assert.Empty(t, buf.String())
}

type countingObserver struct {
	reactive.NopObserver
	passes int
}

func (c *countingObserver) TrackerPass(string, int, time.Duration) { c.passes++ }

func TestMulti(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	install(t, Multi(a, nil, b))

	exercise(t)

	assert.Equal(t, 2, a.passes)
	assert.Equal(t, 2, b.passes)
	assert.Same(t, a, Multi(nil, a))
}
