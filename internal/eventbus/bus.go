// Package eventbus provides a process-wide publish/subscribe channel.
// The file-backed document store has no native change notifications, so it
// broadcasts an event after every write and sibling store instances re-read
// their state when it fires.
package eventbus

import "sync"

// EventInventoryUpdated fires after any mutation of locally persisted
// inventory state.
const EventInventoryUpdated = "inventoryUpdated"

// Bus fans out named events to registered handlers. It is created once at
// startup and injected into consumers; handlers run synchronously on the
// publisher's goroutine, so they must not block.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]func()
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[string]map[int]func())}
}

// Subscribe registers fn for the named event and returns an unsubscribe
// function. Unsubscribing more than once is safe.
func (b *Bus) Subscribe(event string, fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[event] == nil {
		b.handlers[event] = make(map[int]func())
	}
	id := b.nextID
	b.nextID++
	b.handlers[event][id] = fn

	return func() {
		b.mu.Lock()
		delete(b.handlers[event], id)
		b.mu.Unlock()
	}
}

// Publish invokes every handler registered for the named event.
func (b *Bus) Publish(event string) {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.handlers[event]))
	for _, fn := range b.handlers[event] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// HandlerCount returns the number of handlers registered for the named event.
func (b *Bus) HandlerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}
