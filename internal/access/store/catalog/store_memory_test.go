package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"repoguard/internal/access/models"
	id "repoguard/pkg/domain"
	"repoguard/pkg/platform/sentinel"
)

type CatalogStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestCatalogStoreSuite(t *testing.T) {
	suite.Run(t, new(CatalogStoreSuite))
}

func (s *CatalogStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *CatalogStoreSuite) permission(permID id.PermissionID) *models.Permission {
	return &models.Permission{
		ID:       permID,
		Category: models.CategoryRepository,
		Level:    10,
		Metadata: map[string]string{"origin": "test"},
	}
}

func (s *CatalogStoreSuite) TestCreateAndGet() {
	s.Run("round trips a permission", func() {
		p := s.permission("repo:read")
		s.Require().NoError(s.store.Create(s.ctx, p))

		got, err := s.store.Get(s.ctx, "repo:read")
		s.Require().NoError(err)
		s.Equal(p.ID, got.ID)
		s.Equal(p.Metadata, got.Metadata)
	})

	s.Run("duplicate identity conflicts", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.permission("repo:write")))
		s.ErrorIs(s.store.Create(s.ctx, s.permission("repo:write")), sentinel.ErrConflict)
	})

	s.Run("missing identity is not found", func() {
		_, err := s.store.Get(s.ctx, "repo:nonexistent")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *CatalogStoreSuite) TestReturnsCopies() {
	p := s.permission("repo:read")
	s.Require().NoError(s.store.Create(s.ctx, p))

	got, err := s.store.Get(s.ctx, "repo:read")
	s.Require().NoError(err)
	got.Level = 99
	got.Metadata["origin"] = "mutated"

	again, err := s.store.Get(s.ctx, "repo:read")
	s.Require().NoError(err)
	s.Equal(10, again.Level)
	s.Equal("test", again.Metadata["origin"])
}

func (s *CatalogStoreSuite) TestUpdate() {
	s.Run("replaces stored permission", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.permission("repo:read")))

		updated := s.permission("repo:read")
		updated.Level = 20
		s.Require().NoError(s.store.Update(s.ctx, updated))

		got, err := s.store.Get(s.ctx, "repo:read")
		s.Require().NoError(err)
		s.Equal(20, got.Level)
	})

	s.Run("missing identity is not found", func() {
		s.ErrorIs(s.store.Update(s.ctx, s.permission("repo:missing")), sentinel.ErrNotFound)
	})
}

func (s *CatalogStoreSuite) TestDelete() {
	s.Require().NoError(s.store.Create(s.ctx, s.permission("repo:read")))
	s.Require().NoError(s.store.Delete(s.ctx, "repo:read"))

	_, err := s.store.Get(s.ctx, "repo:read")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, "repo:read"), sentinel.ErrNotFound)
}

func (s *CatalogStoreSuite) TestList() {
	s.Require().NoError(s.store.Create(s.ctx, s.permission("repo:read")))
	s.Require().NoError(s.store.Create(s.ctx, s.permission("repo:write")))

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}
