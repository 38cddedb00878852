package reactive

// Listener is anything that must be told, at most once per batch, that one of
// its inputs changed. Derived subscriptions and trackers implement it.
type Listener interface {
	// MarkDirty notifies the listener that one of its inputs has changed.
	// For derived values this recomputes and maybe emits.
	// For trackers this invalidates the current pass.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication during batch processing.
	ID() uint64
}

// Unsubscribe cancels a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// notify delivers a change to l now, or queues it when a batch is open.
func notify(l Listener) {
	if getBatchDepth() > 0 {
		queuePendingUpdate(l)
		return
	}
	l.MarkDirty()
}
