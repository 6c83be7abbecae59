// Package events implements the subscription channel used to signal
// connectivity, session and task-state changes. Delivery is best-effort:
// a subscriber that falls behind loses its oldest buffered events, and the
// remainder stays in chronological order. Events carry no payload beyond
// their type, so a dropped event coalesces into the next one of its kind;
// subscribers re-read the relevant snapshot rather than replaying events.
package events

import (
	"sync"
	"time"
)

// Type identifies what changed.
type Type string

const (
	StateChanged Type = "state_changed"
	SyncStatus   Type = "sync_status"
	Online       Type = "online"
	Offline      Type = "offline"
	SignedIn     Type = "signed_in"
	SignedOut    Type = "signed_out"
)

// Event is a notification published on the bus.
type Event struct {
	Type   Type
	UserID string
	Time   time.Time
}

// Bus is an ordered fan-out of events to subscribers. Publishing never
// blocks the publisher: a subscriber that falls behind has its oldest
// buffered event dropped, the remainder stays in order.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

const subscriberBuffer = 64

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]chan Event),
	}
}

// Subscribe registers a listener. The returned cancel function removes the
// subscription and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber.
func (b *Bus) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		for {
			select {
			case ch <- event:
			default:
				// full buffer: drop the oldest to keep ordering
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Close tears down all subscriptions.
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
