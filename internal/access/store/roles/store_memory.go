// Package roles provides the in-memory role graph store.
package roles

import (
	"context"
	"slices"
	"sync"

	"repoguard/internal/access/models"
	id "repoguard/pkg/domain"
	"repoguard/pkg/platform/sentinel"
)

// InMemoryStore keeps roles keyed by slug. The parent adjacency lives on the
// role records themselves; graph validation is the service's concern.
type InMemoryStore struct {
	mu    sync.RWMutex
	roles map[id.RoleID]*models.Role
}

func New() *InMemoryStore {
	return &InMemoryStore{roles: make(map[id.RoleID]*models.Role)}
}

func (s *InMemoryStore) Create(_ context.Context, role *models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role.ID]; ok {
		return sentinel.ErrConflict
	}
	s.roles[role.ID] = clone(role)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, roleID id.RoleID) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if role, ok := s.roles[roleID]; ok {
		return clone(role), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Role, 0, len(s.roles))
	for _, role := range s.roles {
		out = append(out, clone(role))
	}
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, role *models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.roles[role.ID] = clone(role)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.roles, roleID)
	return nil
}

func clone(r *models.Role) *models.Role {
	cp := *r
	cp.ParentIDs = slices.Clone(r.ParentIDs)
	cp.PermissionIDs = slices.Clone(r.PermissionIDs)
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		cp.ExpiresAt = &t
	}
	return &cp
}
