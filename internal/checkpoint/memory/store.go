// Package memory provides an in-memory checkpoint store for tests and
// dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/vgassen/lexharvest/internal/harvest"
)

// Store keeps the resolved set in memory only.
type Store struct {
	mu  sync.Mutex
	set harvest.ProcessedSet
}

// New returns an empty Store.
func New() *Store {
	return &Store{set: make(harvest.ProcessedSet)}
}

// Seed pre-populates the set, emulating state from a prior run.
func (s *Store) Seed(ids ...harvest.Identifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.set.Add(id)
	}
}

// Load returns a copy of the current set.
func (s *Store) Load(_ context.Context) (harvest.ProcessedSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(harvest.ProcessedSet, len(s.set))
	for id := range s.set {
		out.Add(id)
	}
	return out, nil
}

// Commit merges newly into the set.
func (s *Store) Commit(_ context.Context, newly []harvest.Identifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range newly {
		s.set.Add(id)
	}
	return nil
}

// Resolved reports whether id is in the committed set.
func (s *Store) Resolved(id harvest.Identifier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Contains(id)
}

// Len reports the committed set size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set)
}
