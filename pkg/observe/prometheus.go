package observe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/livestate/pkg/reactive"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "livestate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for tracker pass duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "livestate",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Prometheus records core activity as Prometheus metrics.
//
// Metrics collected:
//   - livestate_changes_published_total: changes published by nodes
//   - livestate_change_deliveries_total: subscriber calls made for those changes
//   - livestate_path_rebinds_total: path subscription suffixes rebuilt
//   - livestate_derived_emissions_total: values emitted by derived subscriptions
//   - livestate_tracker_passes_total: tracking passes, by tracker
//   - livestate_tracker_pass_duration_seconds: pass duration, by tracker
//   - livestate_tracker_paths: paths subscribed by the last pass, by tracker
//   - livestate_tracker_invalidations_total: invalidations, by tracker and reason
type Prometheus struct {
	changesPublished    prometheus.Counter
	changeDeliveries    prometheus.Counter
	pathRebinds         prometheus.Counter
	derivedEmissions    prometheus.Counter
	trackerPasses       *prometheus.CounterVec
	trackerPassDuration *prometheus.HistogramVec
	trackerPaths        *prometheus.GaugeVec
	trackerInvalidated  *prometheus.CounterVec
}

var _ reactive.Observer = (*Prometheus)(nil)

// NewPrometheus registers the metrics with the configured registry.
// It panics if they are already registered there, like promauto does.
func NewPrometheus(opts ...MetricsOption) *Prometheus {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Prometheus{
		changesPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "changes_published_total",
			Help:        "Total number of property changes published by nodes",
			ConstLabels: config.ConstLabels,
		}),

		changeDeliveries: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "change_deliveries_total",
			Help:        "Total number of subscriber calls made for published changes",
			ConstLabels: config.ConstLabels,
		}),

		pathRebinds: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "path_rebinds_total",
			Help:        "Total number of path subscription suffixes rebuilt after a segment changed",
			ConstLabels: config.ConstLabels,
		}),

		derivedEmissions: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "derived_emissions_total",
			Help:        "Total number of values emitted by derived subscriptions",
			ConstLabels: config.ConstLabels,
		}),

		trackerPasses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tracker_passes_total",
			Help:        "Total number of tracking passes",
			ConstLabels: config.ConstLabels,
		}, []string{"tracker"}),

		trackerPassDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tracker_pass_duration_seconds",
			Help:        "Tracking pass duration in seconds, render included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"tracker"}),

		trackerPaths: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tracker_paths",
			Help:        "Number of paths subscribed by the tracker's last pass",
			ConstLabels: config.ConstLabels,
		}, []string{"tracker"}),

		trackerInvalidated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tracker_invalidations_total",
			Help:        "Total number of tracker invalidations by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"tracker", "reason"}),
	}
}

func (p *Prometheus) ChangePublished(_ *reactive.Node, _ reactive.Change, delivered int) {
	p.changesPublished.Inc()
	p.changeDeliveries.Add(float64(delivered))
}

func (p *Prometheus) PathRebound(reactive.Path, int) {
	p.pathRebinds.Inc()
}

func (p *Prometheus) DerivedEmitted() {
	p.derivedEmissions.Inc()
}

func (p *Prometheus) TrackerPass(name string, paths int, took time.Duration) {
	p.trackerPasses.WithLabelValues(name).Inc()
	p.trackerPassDuration.WithLabelValues(name).Observe(took.Seconds())
	p.trackerPaths.WithLabelValues(name).Set(float64(paths))
}

func (p *Prometheus) TrackerInvalidated(name string, reason reactive.InvalidationReason) {
	p.trackerInvalidated.WithLabelValues(name, string(reason)).Inc()
}
