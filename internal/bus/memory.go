package bus

import (
	"context"
	"sync"
)

// subscriberBuffer bounds each subscriber channel. A full buffer drops the
// event for that subscriber instead of blocking the publisher.
const subscriberBuffer = 64

// Memory is an in-process Notifier that fans events out to subscribers.
type Memory struct {
	mu   sync.Mutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	ch    chan Event
	types map[Type]bool
}

// NewMemory creates an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{subs: make(map[int]*subscription)}
}

// Subscribe returns a channel receiving events of the given types (all
// types when none are named) and a cancel function that closes it.
func (m *Memory) Subscribe(types ...Type) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, subscriberBuffer)}
	if len(types) > 0 {
		sub.types = make(map[Type]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = sub
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if s, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(s.ch)
		}
		m.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish delivers the event to every matching subscriber without ever
// blocking the caller.
func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs {
		if sub.types != nil && !sub.types[ev.Type] {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Subscriber is lagging; drop rather than stall the loader.
		}
	}
	return nil
}
