package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "repoguard/pkg/domain"
	audit "repoguard/pkg/platform/audit"
)

type AuditStoreSuite struct {
	suite.Suite
	ctx context.Context
}

func TestAuditStoreSuite(t *testing.T) {
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *AuditStoreSuite) event(eventID id.EventID) audit.Event {
	return audit.Event{
		ID:        eventID,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Type:      audit.EventLoginSuccess,
	}
}

func (s *AuditStoreSuite) TestAppendAndGet() {
	store := NewInMemoryStore(10)
	s.Require().NoError(store.Append(s.ctx, s.event("e1")))

	got, ok := store.Get(s.ctx, "e1")
	s.True(ok)
	s.Equal(id.EventID("e1"), got.ID)

	_, ok = store.Get(s.ctx, "ghost")
	s.False(ok)
}

func (s *AuditStoreSuite) TestTrimsOldestAtBound() {
	store := NewInMemoryStore(3)
	for i := 0; i < 5; i++ {
		s.Require().NoError(store.Append(s.ctx, s.event(id.EventID(fmt.Sprintf("e%d", i)))))
	}

	s.Equal(3, store.Len())
	s.Equal(int64(2), store.Trimmed())

	events := store.Snapshot(s.ctx)
	s.Equal(id.EventID("e2"), events[0].ID)
	s.Equal(id.EventID("e4"), events[2].ID)

	s.Run("trimmed events are unindexed", func() {
		_, ok := store.Get(s.ctx, "e0")
		s.False(ok)
		got, ok := store.Get(s.ctx, "e4")
		s.True(ok)
		s.Equal(id.EventID("e4"), got.ID)
	})
}

func (s *AuditStoreSuite) TestSetCorrelation() {
	store := NewInMemoryStore(10)
	s.Require().NoError(store.Append(s.ctx, s.event("e1")))
	s.Require().NoError(store.Append(s.ctx, s.event("e2")))

	stamped := store.SetCorrelation(s.ctx, []id.EventID{"e1", "e2", "ghost"}, "corr-1")
	s.Equal(2, stamped)

	got, ok := store.Get(s.ctx, "e1")
	s.True(ok)
	s.Equal(id.CorrelationID("corr-1"), got.CorrelationID)
}

func (s *AuditStoreSuite) TestSnapshotIsACopy() {
	store := NewInMemoryStore(10)
	s.Require().NoError(store.Append(s.ctx, s.event("e1")))

	snap := store.Snapshot(s.ctx)
	snap[0].CorrelationID = "mutated"

	again := store.Snapshot(s.ctx)
	s.Empty(again[0].CorrelationID)
}
