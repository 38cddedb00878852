package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingListener struct {
	id    uint64
	dirty int
}

func (l *countingListener) MarkDirty() { l.dirty++ }
func (l *countingListener) ID() uint64 { return l.id }

func TestBatchDeduplicatesListeners(t *testing.T) {
	l := &countingListener{id: nextID()}

	Batch(func() {
		notify(l)
		notify(l)
		assert.Equal(t, 0, l.dirty)
	})

	assert.Equal(t, 1, l.dirty)
}

func TestNestedBatchFlushesOnce(t *testing.T) {
	l := &countingListener{id: nextID()}

	Batch(func() {
		assert.True(t, InBatch())
		Batch(func() {
			notify(l)
		})
		assert.Equal(t, 0, l.dirty, "inner batch must not flush")
		notify(l)
	})

	assert.Equal(t, 1, l.dirty)
	assert.False(t, InBatch())
}

func TestNotifyOutsideBatchIsImmediate(t *testing.T) {
	l := &countingListener{id: nextID()}
	notify(l)
	notify(l)
	assert.Equal(t, 2, l.dirty)
}

func TestBatchFlushesAfterPanic(t *testing.T) {
	l := &countingListener{id: nextID()}

	assert.Panics(t, func() {
		Batch(func() {
			notify(l)
			panic("boom")
		})
	})

	assert.Equal(t, 1, l.dirty)
	assert.False(t, InBatch())
}

func TestBatchDepthIsPerGoroutine(t *testing.T) {
	done := make(chan bool)
	Batch(func() {
		go func() { done <- InBatch() }()
		assert.False(t, <-done)
	})
}
