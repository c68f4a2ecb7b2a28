// Package catalog implements the permission catalog operations. The catalog
// does not report to the audit log itself; auditing is layered on top by the
// component orchestrating catalog mutations.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"repoguard/internal/access/models"
	"repoguard/internal/access/ports"
	id "repoguard/pkg/domain"
	dErrors "repoguard/pkg/domain-errors"
	"repoguard/pkg/platform/sentinel"
	"repoguard/pkg/requestcontext"
)

// Service provides permission catalog management. Deleting a permission
// cascades removal of its id from every role's direct set, so the service
// holds the role store alongside its own.
type Service struct {
	store  ports.CatalogStore
	roles  ports.RoleStore
	cache  ports.CacheInvalidator
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithCacheInvalidator wires the resolver cache so catalog mutations drop
// every cached resolution.
func WithCacheInvalidator(cache ports.CacheInvalidator) Option {
	return func(s *Service) { s.cache = cache }
}

func New(store ports.CatalogStore, roles ports.RoleStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog store is required")
	}
	if roles == nil {
		return nil, errors.New("role store is required")
	}
	svc := &Service{store: store, roles: roles}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateInput describes a new permission definition.
type CreateInput struct {
	Resource    string
	Action      string
	DisplayName string
	Description string
	Category    models.PermissionCategory
	Level       int
	IsCore      bool
	Metadata    map[string]string
}

// Create registers a new permission. The identity is the normalized
// resource:action pair; duplicates are rejected before any mutation.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Permission, error) {
	permID, err := id.ParsePermissionID(input.Resource, input.Action)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	perm := &models.Permission{
		ID:          permID,
		DisplayName: input.DisplayName,
		Description: input.Description,
		Category:    input.Category,
		Level:       input.Level,
		IsCore:      input.IsCore,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := perm.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, perm); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "permission %s already exists", permID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create permission")
	}
	s.invalidate()
	return perm, nil
}

// Get returns the permission by identity.
func (s *Service) Get(ctx context.Context, permID id.PermissionID) (*models.Permission, error) {
	perm, err := s.store.Get(ctx, permID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "permission %s not found", permID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get permission")
	}
	return perm, nil
}

// ListFilter narrows List results. Nil level bounds mean unbounded.
type ListFilter struct {
	Category models.PermissionCategory
	Resource string
	Action   string
	MinLevel *int
	MaxLevel *int
}

// List returns matching permissions sorted ascending by level, with the
// identity as a stable tie-break.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*models.Permission, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list permissions")
	}

	out := make([]*models.Permission, 0, len(all))
	for _, perm := range all {
		if filter.Category != "" && perm.Category != filter.Category {
			continue
		}
		if filter.Resource != "" && perm.ID.Resource() != filter.Resource {
			continue
		}
		if filter.Action != "" && perm.ID.Action() != filter.Action {
			continue
		}
		if filter.MinLevel != nil && perm.Level < *filter.MinLevel {
			continue
		}
		if filter.MaxLevel != nil && perm.Level > *filter.MaxLevel {
			continue
		}
		out = append(out, perm)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Update applies a partial mutation. Permission identity is immutable for
// every permission; description, display name, level, and metadata remain
// mutable, on core permissions too.
func (s *Service) Update(ctx context.Context, permID id.PermissionID, update models.PermissionUpdate) (*models.Permission, error) {
	perm, err := s.Get(ctx, permID)
	if err != nil {
		return nil, err
	}

	if update.DisplayName != nil {
		perm.DisplayName = *update.DisplayName
	}
	if update.Description != nil {
		perm.Description = *update.Description
	}
	if update.Level != nil {
		perm.Level = *update.Level
	}
	if update.Metadata != nil {
		perm.Metadata = update.Metadata
	}
	perm.UpdatedAt = requestcontext.Now(ctx)

	if err := perm.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, perm); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update permission")
	}
	s.invalidate()
	return perm, nil
}

// Delete removes a permission. Core permissions are protected. The id is
// first removed from every role's direct permission set so no role is left
// referencing a missing definition.
func (s *Service) Delete(ctx context.Context, permID id.PermissionID) error {
	perm, err := s.Get(ctx, permID)
	if err != nil {
		return err
	}
	if perm.IsCore {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "core permission %s cannot be deleted", permID)
	}

	roles, err := s.roles.List(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list roles for cascade")
	}
	now := requestcontext.Now(ctx)
	for _, role := range roles {
		kept := role.PermissionIDs[:0]
		removed := false
		for _, pid := range role.PermissionIDs {
			if pid == permID {
				removed = true
				continue
			}
			kept = append(kept, pid)
		}
		if !removed {
			continue
		}
		role.PermissionIDs = kept
		role.UpdatedAt = now
		if err := s.roles.Update(ctx, role); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to detach permission from role")
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "permission detached from role",
				"permission_id", permID.String(),
				"role_id", role.ID.String(),
			)
		}
	}

	if err := s.store.Delete(ctx, permID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete permission")
	}
	s.invalidate()
	return nil
}

// Exists reports whether every given permission id is present. Roles
// validate their direct sets through this before persisting.
func (s *Service) Exists(ctx context.Context, permIDs []id.PermissionID) error {
	for _, permID := range permIDs {
		if _, err := s.store.Get(ctx, permID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeValidation, "permission %s does not exist", permID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check permission")
		}
	}
	return nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.InvalidateAll()
	}
}
