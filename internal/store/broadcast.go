package store

import (
	"sync"
)

// broadcaster fans full-collection snapshots out to subscribers.
// Subscriber channels are buffered with capacity one; when a subscriber
// lags, the stale snapshot is dropped and replaced by the newer one.
// Each snapshot carries the full authoritative state, so only the latest
// matters.
type broadcaster struct {
	mu   sync.Mutex
	subs map[chan Snapshot]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		subs: make(map[chan Snapshot]struct{}),
	}
}

// subscribe registers a new subscriber channel and returns it together
// with an idempotent release func.
func (b *broadcaster) subscribe() (chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, release
}

// publish delivers the snapshot to every subscriber without blocking
func (b *broadcaster) publish(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot, then deliver the newer one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// count returns the number of active subscribers
func (b *broadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
