package api

import (
	"sync"
)

// SSEEvent is one grouping event as delivered to SSE and WebSocket clients.
type SSEEvent struct {
	Type string
	Data map[string]any
}

// Broker fans grouping events out to in-process subscribers. Publish never
// blocks; a subscriber whose buffer is full misses the event.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[chan SSEEvent]struct{} // grouping id -> subscribers
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan SSEEvent]struct{}{}}
}

// Subscribe returns a buffered channel for groupingID. After Close it returns
// an already closed channel.
func (b *Broker) Subscribe(groupingID string) chan SSEEvent {
	ch := make(chan SSEEvent, 8)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	set := b.subs[groupingID]
	if set == nil {
		set = map[chan SSEEvent]struct{}{}
		b.subs[groupingID] = set
	}
	set[ch] = struct{}{}
	return ch
}

func (b *Broker) Unsubscribe(groupingID string, ch chan SSEEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[groupingID]
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(b.subs, groupingID)
	}
	close(ch)
}

func (b *Broker) Publish(groupingID string, evt SSEEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[groupingID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers counts open subscriptions across all groupings.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, set := range b.subs {
		n += len(set)
	}
	return n
}

// Close ends every open stream.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, set := range b.subs {
		for ch := range set {
			close(ch)
		}
		delete(b.subs, id)
	}
	b.closed = true
	return nil
}
