// Package memory collects batch events in-memory for tests.
package memory

import (
	"context"
	"sync"

	"github.com/vgassen/lexharvest/internal/harvest"
)

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []harvest.BatchEvent
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish stores the event.
func (p *Publisher) Publish(_ context.Context, event harvest.BatchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns the published events in order.
func (p *Publisher) Events() []harvest.BatchEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]harvest.BatchEvent, len(p.events))
	copy(out, p.events)
	return out
}
