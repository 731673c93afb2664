package adsb

import "sync"

// DefaultSubscriberBuffer is the per-subscriber channel depth
const DefaultSubscriberBuffer = 1

// Broker fans snapshots out to subscribers. A subscriber that falls behind only
// ever sees the newest pending snapshot; older ones are dropped in its queue.
type Broker struct {
	mu        sync.Mutex
	buffer    int
	subs      map[uint64]chan Snapshot
	nextID    uint64
	latest    Snapshot
	hasLatest bool
	closed    bool
}

// NewBroker creates a broker with the given per-subscriber buffer
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = DefaultSubscriberBuffer
	}
	return &Broker{
		buffer: buffer,
		subs:   make(map[uint64]chan Snapshot),
	}
}

// Publish delivers a snapshot to every subscriber without blocking
func (b *Broker) Publish(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.latest = s
	b.hasLatest = true

	for _, ch := range b.subs {
		deliver(ch, s)
	}
}

// deliver must be called with the broker lock held so only one sender touches ch
func deliver(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	// Full: drop the oldest pending snapshot
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

// Latest returns the most recently published snapshot
func (b *Broker) Latest() (Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.hasLatest
}

// Subscribe registers a new subscriber. The latest snapshot, if any, is queued
// immediately. The returned cancel func unregisters and closes the channel.
func (b *Broker) Subscribe() (<-chan Snapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Snapshot, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	if b.hasLatest {
		ch <- b.latest
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Subscribers returns the number of active subscribers
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
		delete(b.subs, id)
		close(ch)
	}
}
