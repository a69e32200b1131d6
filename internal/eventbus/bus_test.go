package eventbus

import "testing"

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := New()

	var a, b int
	bus.Subscribe(EventInventoryUpdated, func() { a++ })
	bus.Subscribe(EventInventoryUpdated, func() { b++ })

	bus.Publish(EventInventoryUpdated)
	bus.Publish(EventInventoryUpdated)

	if a != 2 || b != 2 {
		t.Fatalf("expected both handlers called twice, got a=%d b=%d", a, b)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()

	var calls int
	unsub := bus.Subscribe(EventInventoryUpdated, func() { calls++ })

	bus.Publish(EventInventoryUpdated)
	unsub()
	bus.Publish(EventInventoryUpdated)

	if calls != 1 {
		t.Fatalf("expected 1 call after unsubscribe, got %d", calls)
	}
	if got := bus.HandlerCount(EventInventoryUpdated); got != 0 {
		t.Fatalf("expected 0 handlers, got %d", got)
	}
}

func TestDoubleUnsubscribe(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(EventInventoryUpdated, func() {})
	unsub()
	// Should not panic
	unsub()
}

func TestPublishUnknownEvent(t *testing.T) {
	bus := New()
	// Should not panic with no handlers registered
	bus.Publish("somethingElse")
}
