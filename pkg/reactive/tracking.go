package reactive

import (
	"runtime"
	"sync"
)

// trackingContext holds the batching state for one goroutine.
// The core assumes one goroutine drives a given object graph; keeping the
// state per goroutine means unrelated graphs on other goroutines never share
// a batch.
type trackingContext struct {
	// batchDepth tracks nested Batch() calls.
	// When > 0, listener notifications are queued instead of delivered.
	batchDepth int

	// pendingUpdates accumulates listeners to notify when the batch completes.
	// Deduplicated by ID before notification.
	pendingUpdates []Listener
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getGoroutineID returns a unique identifier for the current goroutine,
// parsed from the header of runtime.Stack ("goroutine <id> [...").
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // Skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTrackingContext returns the tracking context for the current goroutine,
// creating it on first use.
func getTrackingContext() *trackingContext {
	gid := getGoroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// getBatchDepth returns the current batch nesting depth.
// It does not allocate a context for goroutines that never batched.
func getBatchDepth() int {
	if ctx, ok := trackingContexts.Load(getGoroutineID()); ok {
		return ctx.(*trackingContext).batchDepth
	}
	return 0
}

// incrementBatchDepth increases the batch depth by 1.
func incrementBatchDepth() {
	getTrackingContext().batchDepth++
}

// decrementBatchDepth decreases the batch depth by 1.
// Returns true if batch depth reached 0 (batch complete).
func decrementBatchDepth() bool {
	ctx := getTrackingContext()
	ctx.batchDepth--
	return ctx.batchDepth == 0
}

// queuePendingUpdate adds a listener to the pending updates queue.
func queuePendingUpdate(l Listener) {
	ctx := getTrackingContext()
	ctx.pendingUpdates = append(ctx.pendingUpdates, l)
}

// drainPendingUpdates returns and clears the pending updates queue.
func drainPendingUpdates() []Listener {
	ctx := getTrackingContext()
	updates := ctx.pendingUpdates
	ctx.pendingUpdates = nil
	return updates
}

// releaseTrackingContext drops the current goroutine's context once it holds
// no batch state.
func releaseTrackingContext() {
	gid := getGoroutineID()
	if ctx, ok := trackingContexts.Load(gid); ok {
		tc := ctx.(*trackingContext)
		if tc.batchDepth == 0 && len(tc.pendingUpdates) == 0 {
			trackingContexts.Delete(gid)
		}
	}
}
