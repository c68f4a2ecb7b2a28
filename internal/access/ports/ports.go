// Package ports defines shared interfaces for the access module. Interfaces
// live here when consumed by multiple services to avoid duplication.
package ports

import (
	"context"

	"repoguard/internal/access/models"
	id "repoguard/pkg/domain"
	audit "repoguard/pkg/platform/audit"
)

// AuditPublisher receives security-relevant events from the access services.
// Implementations must never block or fail the operation being audited;
// *audit.Log satisfies this directly.
type AuditPublisher interface {
	LogEvent(ctx context.Context, event audit.Event)
}

// CatalogStore persists permission definitions.
type CatalogStore interface {
	// Create stores a new permission. Returns sentinel.ErrConflict when the
	// identity is already present.
	Create(ctx context.Context, p *models.Permission) error

	// Get returns the permission or sentinel.ErrNotFound.
	Get(ctx context.Context, permID id.PermissionID) (*models.Permission, error)

	// List returns all permissions.
	List(ctx context.Context) ([]*models.Permission, error)

	// Update replaces a stored permission. Returns sentinel.ErrNotFound when
	// the identity is absent.
	Update(ctx context.Context, p *models.Permission) error

	// Delete removes the permission. Returns sentinel.ErrNotFound when the
	// identity is absent.
	Delete(ctx context.Context, permID id.PermissionID) error
}

// RoleStore persists the role graph.
type RoleStore interface {
	Create(ctx context.Context, role *models.Role) error
	Get(ctx context.Context, roleID id.RoleID) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, roleID id.RoleID) error
}

// AssignmentStore is the append-only assignment ledger. Entries are never
// removed; revocation flips the active flag in place.
type AssignmentStore interface {
	Append(ctx context.Context, a *models.UserRoleAssignment) error
	Update(ctx context.Context, a *models.UserRoleAssignment) error

	// ListByUser returns every ledger entry for the user, including
	// revoked and expired ones. Filtering is the caller's concern.
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.UserRoleAssignment, error)

	// ListByRole returns every ledger entry for the role.
	ListByRole(ctx context.Context, roleID id.RoleID) ([]*models.UserRoleAssignment, error)
}

// CacheInvalidator lets mutating services drop resolver caches without
// depending on the resolver implementation.
type CacheInvalidator interface {
	InvalidateAll()
}
