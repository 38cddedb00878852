package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusPublishesInRegistrationOrder(t *testing.T) {
	var bus Bus
	var order []int

	bus.Subscribe(func(Change) { order = append(order, 1) })
	bus.Subscribe(func(Change) { order = append(order, 2) })
	bus.Subscribe(func(Change) { order = append(order, 3) })

	delivered := bus.Publish(Change{Key: "k"})

	assert.Equal(t, 3, delivered)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBusUnsubscribeIsIdempotent(t *testing.T) {
	var bus Bus
	calls := 0
	off := bus.Subscribe(func(Change) { calls++ })

	off()
	off()
	bus.Publish(Change{Key: "k"})

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, bus.Len())
}

func TestBusUnsubscribeDuringPublish(t *testing.T) {
	var bus Bus
	var second Unsubscribe
	secondCalls := 0

	bus.Subscribe(func(Change) { second() })
	second = bus.Subscribe(func(Change) { secondCalls++ })

	delivered := bus.Publish(Change{Key: "k"})

	assert.Equal(t, 0, secondCalls, "removed subscriber must not run in the same publish")
	assert.Equal(t, 1, delivered)
}

func TestBusSubscribeDuringPublishWaitsForNextEvent(t *testing.T) {
	var bus Bus
	late := 0
	subscribed := false

	bus.Subscribe(func(Change) {
		if !subscribed {
			subscribed = true
			bus.Subscribe(func(Change) { late++ })
		}
	})

	bus.Publish(Change{Key: "a"})
	assert.Equal(t, 0, late)

	bus.Publish(Change{Key: "b"})
	assert.Equal(t, 1, late)
}

func TestBusUnsubscribePreservesOrder(t *testing.T) {
	var bus Bus
	var order []string

	bus.Subscribe(func(Change) { order = append(order, "a") })
	off := bus.Subscribe(func(Change) { order = append(order, "b") })
	bus.Subscribe(func(Change) { order = append(order, "c") })
	bus.Subscribe(func(Change) { order = append(order, "d") })

	off()
	bus.Publish(Change{})

	assert.Equal(t, []string{"a", "c", "d"}, order)
}
