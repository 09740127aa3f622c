package relay

import (
	"context"
	"sync"
)

// Subscriber receives every event published to the rooms it subscribed to.
// Deliver must not block.
type Subscriber interface {
	ParticipantID() string
	Deliver(Event)
}

// Bus fans events out to the subscribers of a room. It does no filtering;
// recipients apply the event's Audience themselves.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(roomID string, s Subscriber)
	Unsubscribe(roomID string, s Subscriber)
}

type topic struct {
	mu   sync.Mutex
	subs map[Subscriber]struct{}
}

// LocalBus delivers within the process. Delivery for one room is serialized,
// so every subscriber sees that room's events in the same order.
type LocalBus struct {
	mu     sync.RWMutex
	topics map[string]*topic
}

func NewLocalBus() *LocalBus {
	return &LocalBus{topics: make(map[string]*topic)}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.Deliver(ev)
	return nil
}

// Deliver hands ev to the current subscribers of ev.RoomID.
func (b *LocalBus) Deliver(ev Event) {
	b.mu.RLock()
	t := b.topics[ev.RoomID]
	b.mu.RUnlock()
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for s := range t.subs {
		s.Deliver(ev)
	}
}

func (b *LocalBus) Subscribe(roomID string, s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[roomID]
	if !ok {
		t = &topic{subs: make(map[Subscriber]struct{})}
		b.topics[roomID] = t
	}
	t.mu.Lock()
	t.subs[s] = struct{}{}
	t.mu.Unlock()
}

func (b *LocalBus) Unsubscribe(roomID string, s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[roomID]
	if !ok {
		return
	}
	t.mu.Lock()
	delete(t.subs, s)
	empty := len(t.subs) == 0
	t.mu.Unlock()
	if empty {
		delete(b.topics, roomID)
	}
}

// Subscribers returns how many subscribers roomID has.
func (b *LocalBus) Subscribers(roomID string) int {
	b.mu.RLock()
	t := b.topics[roomID]
	b.mu.RUnlock()
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}
