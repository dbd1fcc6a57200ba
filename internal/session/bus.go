package session

import "sync"

// Event describes one session state change. Subscribers re-read whatever
// state they need; the event only says what moved.
type Event struct {
	Resource string // "households", "criteria", "layers", "boundary", "buffer"
	Action   string // "loaded", "culled", "ready", "failed", "changed", "reset", "toggled"
	ID       string // selector, layer or file involved, if any
}

// EventBus fans session events out to subscribers. Delivery is best effort:
// a subscriber whose buffer is full misses the event.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish delivers e to every subscriber without blocking.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a subscriber with room for buffer pending events.
func (b *EventBus) Subscribe(buffer int) chan Event {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes ch and closes it. Unknown channels are ignored.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; !ok {
		return
	}
	delete(b.subs, ch)
	close(ch)
}

// Subscribers returns the current subscriber count.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
