// Package observe provides reactive.Observer implementations.
//
// The core reports what it does through a single process-wide observer:
// published changes, path re-binds, derived emissions, tracker passes and
// tracker invalidations. This package turns those callbacks into Prometheus
// metrics, OpenTelemetry spans, or structured log records, and fans them out
// with Multi.
//
// Example:
//
//	reactive.SetObserver(observe.Multi(
//	    observe.NewPrometheus(observe.WithNamespace("game")),
//	    observe.NewOpenTelemetry(),
//	))
package observe
