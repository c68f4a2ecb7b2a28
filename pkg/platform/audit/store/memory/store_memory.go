// Package memory provides the bounded in-memory audit event store.
package memory

import (
	"context"
	"sync"

	id "repoguard/pkg/domain"
	audit "repoguard/pkg/platform/audit"
)

// InMemoryStore keeps events in arrival order, bounded by maxEvents. When
// the bound is exceeded the oldest entries are trimmed. Events are immutable
// once appended except for correlation-id backfill via SetCorrelation.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    []audit.Event
	index     map[id.EventID]int
	maxEvents int
	trimmed   int64
}

func NewInMemoryStore(maxEvents int) *InMemoryStore {
	if maxEvents <= 0 {
		maxEvents = 10000
	}
	return &InMemoryStore{
		index:     make(map[id.EventID]int),
		maxEvents: maxEvents,
	}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.index[event.ID] = len(s.events) - 1
	if len(s.events) > s.maxEvents {
		over := len(s.events) - s.maxEvents
		for _, old := range s.events[:over] {
			delete(s.index, old.ID)
		}
		s.events = append([]audit.Event(nil), s.events[over:]...)
		for i, e := range s.events {
			s.index[e.ID] = i
		}
		s.trimmed += int64(over)
	}
	return nil
}

// Snapshot returns a copy of all stored events in arrival order.
func (s *InMemoryStore) Snapshot(_ context.Context) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event(nil), s.events...)
}

// Get returns the stored event and whether it exists.
func (s *InMemoryStore) Get(_ context.Context, eventID id.EventID) (audit.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[eventID]; ok {
		return s.events[i], true
	}
	return audit.Event{}, false
}

// SetCorrelation stamps the correlation id on the given events and returns
// how many were found. This is the only permitted mutation of stored events.
func (s *InMemoryStore) SetCorrelation(_ context.Context, eventIDs []id.EventID, corrID id.CorrelationID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamped := 0
	for _, eventID := range eventIDs {
		if i, ok := s.index[eventID]; ok {
			s.events[i].CorrelationID = corrID
			stamped++
		}
	}
	return stamped
}

// Len returns the number of stored events.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Trimmed returns how many events have been dropped by the size bound.
func (s *InMemoryStore) Trimmed() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trimmed
}
