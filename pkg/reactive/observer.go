package reactive

import (
	"sync/atomic"
	"time"
)

// Observer receives instrumentation callbacks from the core.
// Implementations must be cheap and must not write to wrapped objects.
// See package observe for Prometheus, OpenTelemetry and slog implementations.
type Observer interface {
	// ChangePublished is called after a node published a change to
	// delivered subscribers.
	ChangePublished(n *Node, c Change, delivered int)

	// PathRebound is called when a path subscription rebuilt the suffix
	// below depth because the segment at depth changed.
	PathRebound(p Path, depth int)

	// DerivedEmitted is called when a derived value emitted to a subscriber.
	DerivedEmitted()

	// TrackerPass is called after a tracking pass subscribed to paths leaves.
	TrackerPass(name string, paths int, took time.Duration)

	// TrackerInvalidated is called once per invalidation of a tracker.
	TrackerInvalidated(name string, reason InvalidationReason)
}

// InvalidationReason says why a tracker left the Subscribed state.
type InvalidationReason string

const (
	// InvalidatedByChange means a recorded path changed.
	InvalidatedByChange InvalidationReason = "change"
	// InvalidatedByRoot means the tracker was pointed at a different root.
	InvalidatedByRoot InvalidationReason = "root"
)

// NopObserver ignores every callback.
type NopObserver struct{}

func (NopObserver) ChangePublished(*Node, Change, int) {}
func (NopObserver) PathRebound(Path, int) {}
func (NopObserver) DerivedEmitted() {}
func (NopObserver) TrackerPass(string, int, time.Duration) {}
func (NopObserver) TrackerInvalidated(string, InvalidationReason) {}

type observerBox struct{ o Observer }

var currentObserver atomic.Pointer[observerBox]

func init() {
	currentObserver.Store(&observerBox{o: NopObserver{}})
}

// SetObserver installs o as the process-wide observer and returns the
// previous one. A nil o restores NopObserver.
func SetObserver(o Observer) Observer {
	if o == nil {
		o = NopObserver{}
	}
	return currentObserver.Swap(&observerBox{o: o}).o
}

// observer returns the installed observer.
func observer() Observer {
	return currentObserver.Load().o
}
