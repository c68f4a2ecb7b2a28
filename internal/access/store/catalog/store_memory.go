// Package catalog provides the in-memory permission catalog store. The store
// is authoritative for this core; durable persistence is a pluggable concern
// behind ports.CatalogStore.
package catalog

import (
	"context"
	"maps"
	"sync"

	"repoguard/internal/access/models"
	id "repoguard/pkg/domain"
	"repoguard/pkg/platform/sentinel"
)

// InMemoryStore keeps permissions keyed by their normalized identity.
type InMemoryStore struct {
	mu          sync.RWMutex
	permissions map[id.PermissionID]*models.Permission
}

func New() *InMemoryStore {
	return &InMemoryStore{permissions: make(map[id.PermissionID]*models.Permission)}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.permissions[p.ID]; ok {
		return sentinel.ErrConflict
	}
	s.permissions[p.ID] = clone(p)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, permID id.PermissionID) (*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.permissions[permID]; ok {
		return clone(p), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		out = append(out, clone(p))
	}
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, p *models.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.permissions[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.permissions[p.ID] = clone(p)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.permissions[permID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.permissions, permID)
	return nil
}

// clone copies a permission so callers never alias store-owned state.
func clone(p *models.Permission) *models.Permission {
	cp := *p
	if p.Metadata != nil {
		cp.Metadata = maps.Clone(p.Metadata)
	}
	return &cp
}
