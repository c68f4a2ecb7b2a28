// Package models defines the entities of the access-control core: the
// permission catalog, the role graph, and the assignment ledger.
package models

import (
	"time"

	id "repoguard/pkg/domain"
	dErrors "repoguard/pkg/domain-errors"
)

// PermissionCategory groups permissions by the surface they protect.
type PermissionCategory string

const (
	CategorySystem     PermissionCategory = "system"
	CategoryRepository PermissionCategory = "repository"
	CategoryWorkspace  PermissionCategory = "workspace"
	CategoryUser       PermissionCategory = "user"
	CategorySecurity   PermissionCategory = "security"
)

// IsValid checks if the category is one of the supported enum values.
func (c PermissionCategory) IsValid() bool {
	switch c {
	case CategorySystem, CategoryRepository, CategoryWorkspace, CategoryUser, CategorySecurity:
		return true
	}
	return false
}

// Permission is an atomic (resource, action) capability.
//
// Invariants:
//   - ID is the normalized "resource:action" identity and is immutable
//   - Level is within [0, 100]; higher levels are more privileged
//   - Core permissions cannot be deleted and their identity cannot change;
//     description, level, and metadata remain mutable
type Permission struct {
	ID          id.PermissionID    `json:"id"`
	DisplayName string             `json:"display_name"`
	Description string             `json:"description"`
	Category    PermissionCategory `json:"category"`
	Level       int                `json:"level"`
	IsCore      bool               `json:"is_core"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Validate enforces the structural permission invariants.
func (p *Permission) Validate() error {
	if p.ID == "" {
		return dErrors.New(dErrors.CodeValidation, "permission id is required")
	}
	if !p.Category.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown permission category %q", p.Category)
	}
	if p.Level < 0 || p.Level > 100 {
		return dErrors.Newf(dErrors.CodeValidation, "permission level %d outside [0, 100]", p.Level)
	}
	return nil
}

// PermissionUpdate carries a partial permission mutation. Nil fields are
// left untouched.
type PermissionUpdate struct {
	DisplayName *string
	Description *string
	Level       *int
	Metadata    map[string]string
}

// Role is a named, prioritized bundle of permissions with parent-role
// inheritance.
//
// Invariants:
//   - ID is the slug derived from the name at creation and never changes
//   - The parent set never introduces a cycle (validated before mutation)
//   - Every direct permission exists in the catalog at create/update time
//   - System roles cannot be deleted, renamed, or have IsSystem cleared
//   - MaxAssignments of zero means unbounded
type Role struct {
	ID             id.RoleID         `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	ParentIDs      []id.RoleID       `json:"parent_ids,omitempty"`
	PermissionIDs  []id.PermissionID `json:"permission_ids,omitempty"`
	Priority       int               `json:"priority"`
	IsActive       bool              `json:"is_active"`
	IsSystem       bool              `json:"is_system"`
	MaxAssignments int               `json:"max_assignments,omitempty"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// IsExpiredAt reports whether the role's own expiry has passed. Expiry is
// lazy: expired roles stay in the store and are excluded at query time.
func (r *Role) IsExpiredAt(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// IsAssignableAt reports whether the role can receive new assignments and
// contribute permissions at the given instant.
func (r *Role) IsAssignableAt(now time.Time) bool {
	return r.IsActive && !r.IsExpiredAt(now)
}

// HasParent reports whether the role lists parent as a direct parent.
func (r *Role) HasParent(parent id.RoleID) bool {
	for _, p := range r.ParentIDs {
		if p == parent {
			return true
		}
	}
	return false
}

// RoleUpdate carries a partial role mutation. Nil fields are left untouched.
// ParentIDs and PermissionIDs replace the whole set when non-nil.
type RoleUpdate struct {
	Name           *string
	Description    *string
	ParentIDs      []id.RoleID
	PermissionIDs  []id.PermissionID
	Priority       *int
	IsActive       *bool
	IsSystem       *bool
	MaxAssignments *int
	ExpiresAt      *time.Time
}

// UserRoleAssignment is a time-scoped grant of a role to a user.
//
// Invariants:
//   - At most one active assignment per (user, role) pair
//   - Revocation is logical: the entry stays in the ledger with the active
//     flag cleared and revocation metadata stamped
type UserRoleAssignment struct {
	ID         string            `json:"id"`
	UserID     id.UserID         `json:"user_id"`
	RoleID     id.RoleID         `json:"role_id"`
	AssignedBy id.UserID         `json:"assigned_by"`
	AssignedAt time.Time         `json:"assigned_at"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty"`
	Active     bool              `json:"active"`
	Scope      map[string]string `json:"scope,omitempty"`

	RevokedBy     id.UserID  `json:"revoked_by,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedReason string     `json:"revoked_reason,omitempty"`
}

// IsExpiredAt reports whether the assignment's own expiry has passed.
func (a *UserRoleAssignment) IsExpiredAt(now time.Time) bool {
	return a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}

// IsValidAt reports whether the assignment grants its role at the given
// instant: active and not past its expiry. Role-level expiry is checked
// separately against the role itself.
func (a *UserRoleAssignment) IsValidAt(now time.Time) bool {
	return a.Active && !a.IsExpiredAt(now)
}

// AssignOptions carries the optional attributes of a new assignment.
type AssignOptions struct {
	ExpiresAt *time.Time
	Scope     map[string]string
}
