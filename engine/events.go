package engine

import (
	"sync"

	"github.com/hupe1980/agentgrid/core"
)

// Bus broadcasts runtime events to subscribers. Publish never blocks the
// orchestration loop: a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan core.RuntimeEvent
	nextID int
	buffer int
	closed bool
}

// NewBus creates a Bus whose subscriber channels hold up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 1
	}
	return &Bus{subs: make(map[int]chan core.RuntimeEvent), buffer: buffer}
}

// Subscribe registers a new subscriber and returns its event channel together
// with an unsubscribe function. The channel is closed on unsubscribe and when
// the bus shuts down.
func (b *Bus) Subscribe() (<-chan core.RuntimeEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan core.RuntimeEvent)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan core.RuntimeEvent, b.buffer)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish delivers an event to every subscriber with room in its buffer.
func (b *Bus) Publish(ev core.RuntimeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes every subscriber channel; later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
