package reactive

import (
	"sync"
	"sync/atomic"
)

// Change describes one observable write: the value at Key went from Old to New.
// Old and New are the raw (unwrapped) values.
type Change struct {
	Key string
	Old any
	New any
}

// Bus is a synchronous multicast emitter of Change events.
// Publish calls every current subscriber, in registration order, before it
// returns. There is no buffering and no goroutine hop.
type Bus struct {
	mu   sync.Mutex
	subs []*busSub
}

type busSub struct {
	fn     func(Change)
	active atomic.Bool
}

// Subscribe registers fn and returns a function that removes it.
// The returned function is idempotent and takes effect immediately, even when
// called from inside a Publish that has not reached fn yet.
func (b *Bus) Subscribe(fn func(Change)) Unsubscribe {
	s := &busSub{fn: fn}
	s.active.Store(true)

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	return func() {
		if !s.active.Swap(false) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, existing := range b.subs {
			if existing == s {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers c to every subscriber and returns how many received it.
// Subscribers added during the publish are not called for c.
func (b *Bus) Publish(c Change) int {
	b.mu.Lock()
	subs := make([]*busSub, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	delivered := 0
	for _, s := range subs {
		if s.active.Load() {
			s.fn(c)
			delivered++
		}
	}
	return delivered
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
