// Package memory provides an in-memory sink for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/vgassen/lexharvest/internal/harvest"
)

// Sink records delivered batches in memory. FailNext can be armed to
// reject upcoming deliveries.
type Sink struct {
	mu       sync.Mutex
	batches  [][]harvest.Record
	failNext int
	failErr  error
}

// New returns an empty Sink.
func New() *Sink {
	return &Sink{}
}

// FailNext makes the next n deliveries return err.
func (s *Sink) FailNext(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
	s.failErr = err
}

// Deliver stores a copy of the batch, or fails if armed.
func (s *Sink) Deliver(_ context.Context, batch []harvest.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return s.failErr
	}
	s.batches = append(s.batches, append([]harvest.Record(nil), batch...))
	return nil
}

// Batches returns the delivered batches in order.
func (s *Sink) Batches() [][]harvest.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]harvest.Record, len(s.batches))
	copy(out, s.batches)
	return out
}

// Records returns all delivered records flattened in delivery order.
func (s *Sink) Records() []harvest.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []harvest.Record
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}
