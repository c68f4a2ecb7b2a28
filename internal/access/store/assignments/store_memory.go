// Package assignments provides the in-memory assignment ledger. The ledger
// is append-only: revocation updates the entry in place, nothing is removed.
package assignments

import (
	"context"
	"maps"
	"sync"

	"repoguard/internal/access/models"
	id "repoguard/pkg/domain"
	"repoguard/pkg/platform/sentinel"
)

// InMemoryStore indexes ledger entries by assignment id, user, and role.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*models.UserRoleAssignment
	byUser map[id.UserID][]string
	byRole map[id.RoleID][]string
}

func New() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[string]*models.UserRoleAssignment),
		byUser: make(map[id.UserID][]string),
		byRole: make(map[id.RoleID][]string),
	}
}

func (s *InMemoryStore) Append(_ context.Context, a *models.UserRoleAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := clone(a)
	s.byID[a.ID] = cp
	s.byUser[a.UserID] = append(s.byUser[a.UserID], a.ID)
	s.byRole[a.RoleID] = append(s.byRole[a.RoleID], a.ID)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, a *models.UserRoleAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[a.ID] = clone(a)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.UserRoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byUser[userID]
	out := make([]*models.UserRoleAssignment, 0, len(ids))
	for _, assignmentID := range ids {
		out = append(out, clone(s.byID[assignmentID]))
	}
	return out, nil
}

func (s *InMemoryStore) ListByRole(_ context.Context, roleID id.RoleID) ([]*models.UserRoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byRole[roleID]
	out := make([]*models.UserRoleAssignment, 0, len(ids))
	for _, assignmentID := range ids {
		out = append(out, clone(s.byID[assignmentID]))
	}
	return out, nil
}

func clone(a *models.UserRoleAssignment) *models.UserRoleAssignment {
	cp := *a
	if a.Scope != nil {
		cp.Scope = maps.Clone(a.Scope)
	}
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		cp.ExpiresAt = &t
	}
	if a.RevokedAt != nil {
		t := *a.RevokedAt
		cp.RevokedAt = &t
	}
	return &cp
}
