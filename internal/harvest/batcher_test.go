package harvest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecord(i int) Record {
	return Record{
		Identifier: Identifier(fmt.Sprintf("32009L%04d", i)),
		URL:        fmt.Sprintf("https://example.org/doc/%d", i),
		Content:    "content",
		Source:     "test",
	}
}

func TestBatcherEmitsAtCapacity(t *testing.T) {
	t.Parallel()

	b := NewBatcher(100)
	var batches [][]Record
	for i := 0; i < 250; i++ {
		if full, ok := b.Add(makeRecord(i)); ok {
			batches = append(batches, full)
		}
	}
	if final, ok := b.Flush(); ok {
		batches = append(batches, final)
	}

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[1], 100)
	assert.Len(t, batches[2], 50)
}

func TestBatcherPreservesOrder(t *testing.T) {
	t.Parallel()

	b := NewBatcher(3)
	var got []Record
	for i := 0; i < 7; i++ {
		if full, ok := b.Add(makeRecord(i)); ok {
			got = append(got, full...)
		}
	}
	if final, ok := b.Flush(); ok {
		got = append(got, final...)
	}

	require.Len(t, got, 7)
	for i, rec := range got {
		assert.Equal(t, makeRecord(i).Identifier, rec.Identifier)
	}
}

func TestBatcherNeverEmitsEmptyBatch(t *testing.T) {
	t.Parallel()

	b := NewBatcher(10)
	_, ok := b.Flush()
	assert.False(t, ok)

	b.Add(makeRecord(1))
	final, ok := b.Flush()
	require.True(t, ok)
	assert.Len(t, final, 1)

	// The flushed batch is gone; a second flush has nothing.
	_, ok = b.Flush()
	assert.False(t, ok)
}

func TestBatcherLen(t *testing.T) {
	t.Parallel()

	b := NewBatcher(5)
	assert.Equal(t, 0, b.Len())
	b.Add(makeRecord(1))
	b.Add(makeRecord(2))
	assert.Equal(t, 2, b.Len())
}
