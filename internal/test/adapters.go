package test

import (
	"context"
	"sync"

	"github.com/polkiloo/boxoffice/internal/domain/model"
)

// NotifierStub records published events.
type NotifierStub struct {
	Err error

	mu     sync.Mutex
	events []model.OrderEvent
}

// Publish stores the event and returns the configured error.
func (n *NotifierStub) Publish(_ context.Context, event model.OrderEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.Err
}

// Events returns a snapshot of published events.
func (n *NotifierStub) Events() []model.OrderEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.OrderEvent(nil), n.events...)
}

// EventsOfType filters published events by type.
func (n *NotifierStub) EventsOfType(kind string) []model.OrderEvent {
	var out []model.OrderEvent
	for _, e := range n.Events() {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}
