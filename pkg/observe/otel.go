package observe

import (
	"context"
	"time"

	"github.com/vango-dev/livestate/pkg/reactive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for livestate spans.
const defaultTracerName = "livestate"

// OTelConfig configures the OpenTelemetry observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "livestate").
	// Ignored when Tracer is set.
	TracerName string

	// Tracer overrides the tracer resolved from the global provider.
	Tracer trace.Tracer

	// Attributes are added to every span.
	Attributes []attribute.KeyValue

	// Filter determines which trackers to trace by name.
	// If nil, all trackers are traced.
	Filter func(tracker string) bool
}

// OTelOption configures the OpenTelemetry observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer directly.
func WithTracer(tracer trace.Tracer) OTelOption {
	return func(c *OTelConfig) {
		c.Tracer = tracer
	}
}

// WithAttributes adds attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// WithTrackerFilter sets a filter on tracker names.
func WithTrackerFilter(filter func(tracker string) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// OpenTelemetry emits a span for every tracker pass and every tracker
// invalidation. Pass spans are back-dated to cover the render that
// produced them. Node, path and derived callbacks are too fine-grained to
// trace and are ignored; use Prometheus for those.
//
// The tracer uses the global OpenTelemetry tracer provider unless WithTracer
// is given. Configure it in main() before installing the observer.
type OpenTelemetry struct {
	config OTelConfig
	tracer trace.Tracer
}

var _ reactive.Observer = (*OpenTelemetry)(nil)

// NewOpenTelemetry creates the observer.
func NewOpenTelemetry(opts ...OTelOption) *OpenTelemetry {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(config.TracerName)
	}
	return &OpenTelemetry{config: config, tracer: tracer}
}

func (o *OpenTelemetry) traced(tracker string) bool {
	return o.config.Filter == nil || o.config.Filter(tracker)
}

func (o *OpenTelemetry) attrs(extra ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(o.config.Attributes)+len(extra))
	out = append(out, o.config.Attributes...)
	return append(out, extra...)
}

func (o *OpenTelemetry) ChangePublished(*reactive.Node, reactive.Change, int) {}

func (o *OpenTelemetry) PathRebound(reactive.Path, int) {}

func (o *OpenTelemetry) DerivedEmitted() {}

func (o *OpenTelemetry) TrackerPass(name string, paths int, took time.Duration) {
	if !o.traced(name) {
		return
	}
	end := time.Now()
	_, span := o.tracer.Start(context.Background(), "livestate.tracker_pass",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(end.Add(-took)),
		trace.WithAttributes(o.attrs(
			attribute.String("livestate.tracker", name),
			attribute.Int("livestate.paths", paths),
		)...),
	)
	span.End(trace.WithTimestamp(end))
}

func (o *OpenTelemetry) TrackerInvalidated(name string, reason reactive.InvalidationReason) {
	if !o.traced(name) {
		return
	}
	_, span := o.tracer.Start(context.Background(), "livestate.tracker_invalidated",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(o.attrs(
			attribute.String("livestate.tracker", name),
			attribute.String("livestate.reason", string(reason)),
		)...),
	)
	span.End()
}
