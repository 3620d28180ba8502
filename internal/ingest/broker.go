package ingest

import "sync"

// subscriberBufferSize is the channel buffer for each entry subscriber.
// Entries are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// Broker fans ingested entries out to live subscribers. It is safe for
// concurrent use.
//
// After Close, Subscribe returns an already closed channel so late
// subscribers never block.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan Entry
	nextID int
	closed bool
}

// NewBroker creates a new broker.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[int]chan Entry),
	}
}

// Subscribe returns a channel receiving every entry published from now on
// and an unsubscribe function. Unsubscribe is idempotent.
func (b *Broker) Subscribe() (<-chan Entry, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Entry, subscriberBufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

// Publish sends an entry to all subscribers. Entries are dropped for
// subscribers whose buffers are full.
func (b *Broker) Publish(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Drop for slow subscribers so ingestion never blocks.
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
