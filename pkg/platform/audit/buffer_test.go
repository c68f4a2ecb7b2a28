package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBufferFIFO(t *testing.T) {
	b := NewRingBuffer(4)
	b.Enqueue(Event{ID: "e1"})
	b.Enqueue(Event{ID: "e2"})
	b.Enqueue(Event{ID: "e3"})

	batch := b.DequeueBatch(2)
	assert.Equal(t, "e1", batch[0].ID.String())
	assert.Equal(t, "e2", batch[1].ID.String())
	assert.Equal(t, 1, b.Len())
}

func TestRingBufferDropsOldestWhenFull(t *testing.T) {
	b := NewRingBuffer(2)
	b.Enqueue(Event{ID: "e1"})
	b.Enqueue(Event{ID: "e2"})
	b.Enqueue(Event{ID: "e3"})

	assert.Equal(t, int64(1), b.Dropped())
	batch := b.DequeueBatch(10)
	assert.Equal(t, "e2", batch[0].ID.String())
	assert.Equal(t, "e3", batch[1].ID.String())
}

func TestRingBufferEmptyDequeue(t *testing.T) {
	b := NewRingBuffer(2)
	assert.Nil(t, b.DequeueBatch(5))
}

func TestRingBufferWrapAround(t *testing.T) {
	b := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		b.Enqueue(Event{Action: string(rune('a' + i))})
	}
	_ = b.DequeueBatch(2)
	b.Enqueue(Event{Action: "f"})

	batch := b.DequeueBatch(10)
	assert.Equal(t, "e", batch[0].Action)
	assert.Equal(t, "f", batch[1].Action)
}
