package reactive

// Batch groups writes so that listeners (derived values, trackers) are
// notified once, after fn returns, instead of once per write.
//
// Change events on the buses themselves are still published synchronously,
// so a read after a write inside the batch always sees the written value and
// path subscriptions keep emitting eagerly. Only the listener layer waits.
//
// Batches can be nested. Notifications fire when the outermost batch completes.
//
// Example:
//
//	reactive.Batch(func() {
//	    state.Set("a", 2)
//	    state.Set("b", 4)
//	})
//	// a Props sum over a and b recomputes once here
func Batch(fn func()) {
	incrementBatchDepth()

	defer func() {
		if decrementBatchDepth() {
			processPendingUpdates()
			releaseTrackingContext()
		}
	}()

	fn()
}

// processPendingUpdates deduplicates and notifies all pending listeners.
func processPendingUpdates() {
	updates := drainPendingUpdates()
	if len(updates) == 0 {
		return
	}

	seen := make(map[uint64]bool, len(updates))
	unique := make([]Listener, 0, len(updates))

	for _, listener := range updates {
		id := listener.ID()
		if !seen[id] {
			seen[id] = true
			unique = append(unique, listener)
		}
	}

	for _, listener := range unique {
		listener.MarkDirty()
	}
}

// InBatch reports whether the calling goroutine is inside Batch.
func InBatch() bool {
	return getBatchDepth() > 0
}
