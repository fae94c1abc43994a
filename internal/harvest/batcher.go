package harvest

// Batcher accumulates records into fixed-capacity batches. It performs
// no deduplication and no reordering; both are upstream concerns.
//
// Batcher is not safe for concurrent use. The pipeline serializes
// appends when the fetch pool runs with more than one worker.
type Batcher struct {
	capacity int
	open     []Record
}

// NewBatcher returns a Batcher with the given capacity.
func NewBatcher(capacity int) *Batcher {
	if capacity <= 0 {
		capacity = 1
	}
	return &Batcher{
		capacity: capacity,
		open:     make([]Record, 0, capacity),
	}
}

// Add appends rec to the open batch. When the batch reaches capacity it
// is returned and a fresh batch is started.
func (b *Batcher) Add(rec Record) ([]Record, bool) {
	b.open = append(b.open, rec)
	if len(b.open) < b.capacity {
		return nil, false
	}
	full := b.open
	b.open = make([]Record, 0, b.capacity)
	return full, true
}

// Flush returns the partially filled batch at stream end. It never
// returns an empty batch.
func (b *Batcher) Flush() ([]Record, bool) {
	if len(b.open) == 0 {
		return nil, false
	}
	final := b.open
	b.open = make([]Record, 0, b.capacity)
	return final, true
}

// Len reports the number of records in the open batch.
func (b *Batcher) Len() int {
	return len(b.open)
}
