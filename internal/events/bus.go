package events

import (
	"sync"
	"time"
)

// Kind names the fixed set of events a proposal builder emits.
type Kind string

const (
	ProposalCreated    Kind = "proposal.created"
	ProposalSelected   Kind = "proposal.selected"
	ProposalDeleted    Kind = "proposal.deleted"
	ScheduleRecomputed Kind = "schedule.recomputed"
	TaskEdited         Kind = "task.edited"
)

// Event has one schema for every kind; fields that do not apply stay empty.
type Event struct {
	Kind       Kind       `json:"kind"`
	ProposalID string     `json:"proposalId"`
	TaskID     string     `json:"taskId,omitempty"`
	Finish     *time.Time `json:"finish,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

type Handler func(Event)

// Bus delivers events synchronously to subscribers in subscription order.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers []subscription
}

type subscription struct {
	id    int
	kinds map[Kind]bool
	fn    Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for the given kinds, or for every kind when none are
// given. The returned func removes the subscription.
func (b *Bus) Subscribe(fn Handler, kinds ...Kind) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := subscription{id: b.nextID, fn: fn}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = true
		}
	}
	b.handlers = append(b.handlers, sub)

	id := sub.id
	return func() { b.remove(id) }
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.handlers {
		if sub.id == id {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			return
		}
	}
}

// Publish stamps the event if needed and hands it to every matching handler.
// Handlers may subscribe or unsubscribe while being called.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	targets := make([]Handler, 0, len(b.handlers))
	for _, sub := range b.handlers {
		if sub.kinds == nil || sub.kinds[e.Kind] {
			targets = append(targets, sub.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		fn(e)
	}
}

// Len reports the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
