package reactive

import (
	"time"
)

// TrackerState is the lifecycle state of a Tracker.
type TrackerState int

const (
	// TrackerIdle means no pass is subscribed; the next Run starts one.
	TrackerIdle TrackerState = iota
	// TrackerTracking means render is running and reads are being recorded.
	TrackerTracking
	// TrackerSubscribed means the recorded paths are being watched.
	TrackerSubscribed
	// TrackerDisposed is terminal.
	TrackerDisposed
)

// String returns a human-readable name for the state.
func (s TrackerState) String() string {
	switch s {
	case TrackerIdle:
		return "Idle"
	case TrackerTracking:
		return "Tracking"
	case TrackerSubscribed:
		return "Subscribed"
	case TrackerDisposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// TrackerOption configures a Tracker.
type TrackerOption func(*trackerConfig)

type trackerConfig struct {
	onInvalidate func()
	name         string
}

// OnInvalidate sets the callback run once per invalidation. It is the
// consumer's cue to schedule another Run; calling Run from inside the
// callback is allowed.
func OnInvalidate(fn func()) TrackerOption {
	return func(c *trackerConfig) {
		c.onInvalidate = fn
	}
}

// TrackerName names the tracker in logs and metrics.
func TrackerName(name string) TrackerOption {
	return func(c *trackerConfig) {
		c.name = name
	}
}

// Tracker runs a render function against a root, records which paths it
// read, and subscribes to exactly those. The first change to any of them
// invalidates the tracker: every subscription is dropped, the tracker is
// marked dirty, and the OnInvalidate callback runs once. Inside Batch the
// invalidation is delivered once, when the batch ends.
//
// A Tracker is driven from one goroutine.
type Tracker[T any] struct {
	id     uint64
	cfg    trackerConfig
	root   any
	render func(*View) T

	state TrackerState
	dirty bool
	pass  *trackerPass
	deps  []dependency
	subs  []Unsubscribe
	last  T
}

// NewTracker creates an idle tracker. Nothing is read until Run.
func NewTracker[T any](root any, render func(*View) T, opts ...TrackerOption) *Tracker[T] {
	t := &Tracker[T]{
		id:     nextID(),
		root:   Wrap(root),
		render: render,
		state:  TrackerIdle,
		dirty:  true,
	}
	for _, opt := range opts {
		opt(&t.cfg)
	}
	if t.cfg.name == "" {
		t.cfg.name = "tracker"
	}
	return t
}

// Track runs render once against root and keeps it subscribed to the paths
// it read. onInvalidate (may be nil) runs once when any of them changes.
// It returns render's result and a disposer.
func Track[T any](root any, render func(*View) T, onInvalidate func()) (T, func()) {
	t := NewTracker(root, render, OnInvalidate(onInvalidate))
	return t.Run(), t.Dispose
}

// Run performs one pass: render reads through a recording View, then every
// leaf path it read is subscribed with skip-first semantics. Any previous
// pass's subscriptions are dropped first. On a disposed tracker Run returns
// the last result without rendering.
func (t *Tracker[T]) Run() T {
	if t.state == TrackerDisposed {
		return t.last
	}
	t.teardown()

	start := time.Now()
	pass := &trackerPass{active: true}
	record := newAccessRecord()
	t.pass = pass
	t.state = TrackerTracking

	var out T
	func() {
		defer func() {
			pass.active = false
			if t.state == TrackerTracking {
				t.state = TrackerIdle
			}
		}()
		out = t.render(&View{pass: pass, value: t.root, record: record})
	}()

	// render may have disposed the tracker or changed its root.
	if t.state == TrackerDisposed || t.pass != pass {
		return out
	}

	t.last = out
	t.dirty = false
	t.deps = record.dependencies()
	t.subscribe()
	t.state = TrackerSubscribed

	observer().TrackerPass(t.cfg.name, len(t.deps), time.Since(start))
	return out
}

// subscribe watches every dependency of the finished pass.
func (t *Tracker[T]) subscribe() {
	t.subs = make([]Unsubscribe, 0, len(t.deps))
	for _, dep := range t.deps {
		src := &PropSource{root: t.root, path: dep.path}
		t.subs = append(t.subs, src.Subscribe(func(any) {
			t.fire()
		}, SkipFirst()))

		if dep.whole {
			if n := Root(src.Current()); n != nil {
				t.subs = append(t.subs, n.Subscribe(func(Change) {
					t.fire()
				}))
			}
		}
	}
}

// fire routes a dependency change through the batch queue.
func (t *Tracker[T]) fire() {
	if t.state != TrackerSubscribed {
		return
	}
	notify(t)
}

// MarkDirty invalidates the current pass.
// Implements the Listener interface.
func (t *Tracker[T]) MarkDirty() {
	if t.state != TrackerSubscribed {
		return
	}
	t.invalidate(InvalidatedByChange)
}

// ID returns the unique identifier for this tracker.
// Implements the Listener interface.
func (t *Tracker[T]) ID() uint64 {
	return t.id
}

func (t *Tracker[T]) invalidate(reason InvalidationReason) {
	t.teardown()
	t.state = TrackerIdle
	wasDirty := t.dirty
	t.dirty = true

	observer().TrackerInvalidated(t.cfg.name, reason)
	if debugEnabled() {
		logger().Debug("reactive: tracker invalidated",
			"tracker", t.cfg.name,
			"reason", string(reason))
	}

	if !wasDirty && t.cfg.onInvalidate != nil {
		t.cfg.onInvalidate()
	}
}

// SetRoot points the tracker at a different root. If the unwrapped identity
// changed, the current pass is torn down unconditionally and the tracker is
// invalidated; the next Run tracks against the new root.
func (t *Tracker[T]) SetRoot(root any) {
	if t.state == TrackerDisposed {
		return
	}
	wrapped := Wrap(root)
	if Same(wrapped, t.root) {
		return
	}
	t.root = wrapped
	if t.state == TrackerTracking {
		t.pass.active = false
		t.pass = nil
	}
	t.invalidate(InvalidatedByRoot)
}

// teardown drops the current pass's subscriptions.
func (t *Tracker[T]) teardown() {
	for _, off := range t.subs {
		off()
	}
	t.subs = nil
	t.deps = nil
}

// Dispose releases every subscription. The tracker never runs again.
// Dispose is idempotent.
func (t *Tracker[T]) Dispose() {
	if t.state == TrackerDisposed {
		return
	}
	t.teardown()
	if t.pass != nil {
		t.pass.active = false
	}
	t.state = TrackerDisposed
}

// State returns the tracker's lifecycle state.
func (t *Tracker[T]) State() TrackerState {
	return t.state
}

// Dirty reports whether the tracker needs another Run: it has never run, or
// a dependency changed since the last pass.
func (t *Tracker[T]) Dirty() bool {
	return t.dirty
}

// Last returns the result of the most recent pass.
func (t *Tracker[T]) Last() T {
	return t.last
}

// Paths returns the paths the current pass subscribed to.
func (t *Tracker[T]) Paths() []Path {
	out := make([]Path, len(t.deps))
	for i, dep := range t.deps {
		out[i] = dep.path
	}
	return out
}

var _ Listener = (*Tracker[int])(nil)
