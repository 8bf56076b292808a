// Package events implements the domain event bus and the technical notifier.
//
// The bus batches the authoritative events of one engine step; Flush hands
// the batch to subscribers and appends it to history. The notifier is a
// separate fire-and-forget channel for step-boundary notices that must never
// feed back into state or replay.
package events

import "github.com/nathoo/duelcore/types"

// Subscriber receives each flushed batch.
type Subscriber func(batch []types.DomainEvent)

// Bus batches domain events for one step.
type Bus struct {
	pending []types.DomainEvent
	history []types.DomainEvent
	subs    map[int]Subscriber
	order   []int
	nextID  int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: map[int]Subscriber{}}
}

// Emit adds an event to the current batch.
func (b *Bus) Emit(evt types.DomainEvent) {
	b.pending = append(b.pending, evt)
}

// Pending returns the number of unflushed events.
func (b *Bus) Pending() int { return len(b.pending) }

// Flush notifies subscribers in subscription order, appends the batch to
// history, and returns it. An empty batch still notifies nobody.
func (b *Bus) Flush() []types.DomainEvent {
	batch := b.pending
	b.pending = nil
	if len(batch) == 0 {
		return nil
	}
	b.history = append(b.history, batch...)
	for _, id := range b.order {
		if fn, ok := b.subs[id]; ok {
			fn(batch)
		}
	}
	return batch
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Subscriber) (unsubscribe func()) {
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	return func() {
		delete(b.subs, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// History returns a copy of every flushed event, oldest first.
func (b *Bus) History() []types.DomainEvent {
	out := make([]types.DomainEvent, len(b.history))
	copy(out, b.history)
	return out
}

// Reset drops pending events and history. Subscribers are kept.
func (b *Bus) Reset() {
	b.pending = nil
	b.history = nil
}
