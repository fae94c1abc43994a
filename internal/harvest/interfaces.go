package harvest

import (
	"context"
	"time"
)

// Source walks the remote catalog and yields identifiers page by page.
// The walk is finite and forward-only; a transport or parse failure
// while fetching a page ends the walk with an error.
type Source interface {
	// Discover starts a walk at the given 1-based offset.
	Discover(ctx context.Context, startOffset int) Walk
}

// Walk is a lazy, pull-based iteration over catalog identifiers.
type Walk interface {
	// Next returns the next identifier. ok is false when the catalog is
	// exhausted or an error occurred; Err distinguishes the two.
	Next(ctx context.Context) (id Identifier, ok bool)
	// Err reports the error that ended the walk, if any.
	Err() error
	// Total reports the server-announced record count, captured on the
	// first page. Zero until the first page has been fetched.
	Total() int
}

// Fetcher retrieves the raw document for one identifier. Exhausted
// retries surface as ErrUnavailable, not as a hard failure.
type Fetcher interface {
	Fetch(ctx context.Context, id Identifier) (Document, error)
}

// Extractor reduces raw markup to plain text.
type Extractor interface {
	Text(body []byte) (string, error)
}

// Checkpoint persists the set of resolved identifiers across runs.
type Checkpoint interface {
	// Load reads prior state. Missing or corrupt state yields an empty
	// set, never an error the caller must treat as fatal to resume.
	Load(ctx context.Context) (ProcessedSet, error)
	// Commit merges newly resolved identifiers into the persisted set
	// and writes the result back in full.
	Commit(ctx context.Context, newly []Identifier) error
}

// ProcessedSet is the in-memory view of already-resolved identifiers.
type ProcessedSet map[Identifier]struct{}

// Contains reports whether id has already been resolved.
func (s ProcessedSet) Contains(id Identifier) bool {
	_, ok := s[id]
	return ok
}

// Add marks id as resolved in memory.
func (s ProcessedSet) Add(id Identifier) {
	s[id] = struct{}{}
}

// Sink delivers a completed batch to the downstream dataset store. A
// delivery is a single attempt; retry is a run-level concern.
type Sink interface {
	Deliver(ctx context.Context, batch []Record) error
}

// Archive optionally persists raw fetched markup before extraction.
type Archive interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Notifier publishes batch-delivery events.
type Notifier interface {
	Publish(ctx context.Context, event BatchEvent) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Pauser blocks between outbound requests to keep the request rate
// polite, honoring context cancellation.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}
