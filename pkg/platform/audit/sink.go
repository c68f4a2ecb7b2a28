package audit

import (
	"context"
	"sync"
)

// Sink receives flushed event batches for durable storage. Implementations
// live outside this core (database writers, SIEM forwarders); the log only
// requires that Flush tolerate being called with an empty batch.
type Sink interface {
	Flush(ctx context.Context, events []Event) error
}

// NopSink discards every batch. Used when no durable backend is wired.
type NopSink struct{}

func (NopSink) Flush(context.Context, []Event) error { return nil }

// MemorySink captures flushed batches. Test helper.
type MemorySink struct {
	mu      sync.Mutex
	flushed []Event
	batches int
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Flush(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed = append(s.flushed, events...)
	s.batches++
	return nil
}

// Events returns a copy of everything flushed so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.flushed...)
}

// Batches returns how many non-empty flush calls were made.
func (s *MemorySink) Batches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}
