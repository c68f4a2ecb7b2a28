// Package roles implements role graph management and the user-role
// assignment ledger. Every mutation is validated against the full graph
// before the store is touched, so a failed operation leaves no partial state.
package roles

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"repoguard/internal/access/models"
	"repoguard/internal/access/observability"
	"repoguard/internal/access/ports"
	id "repoguard/pkg/domain"
	dErrors "repoguard/pkg/domain-errors"
	audit "repoguard/pkg/platform/audit"
	"repoguard/pkg/platform/sentinel"
	platformstrings "repoguard/pkg/platform/strings"
	"repoguard/pkg/requestcontext"
)

// Service manages the role graph and assignment ledger.
type Service struct {
	store       ports.RoleStore
	catalog     ports.CatalogStore
	assignments ports.AssignmentStore
	cache       ports.CacheInvalidator
	publisher   ports.AuditPublisher
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditPublisher wires the audit log; role and assignment mutations are
// security relevant and are reported when a publisher is present.
func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithCacheInvalidator(cache ports.CacheInvalidator) Option {
	return func(s *Service) { s.cache = cache }
}

func New(store ports.RoleStore, catalog ports.CatalogStore, assignments ports.AssignmentStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("role store is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog store is required")
	}
	if assignments == nil {
		return nil, errors.New("assignment store is required")
	}
	svc := &Service{store: store, catalog: catalog, assignments: assignments}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateInput describes a new role. The slug identity is derived from Name.
type CreateInput struct {
	Name           string
	Description    string
	ParentIDs      []id.RoleID
	PermissionIDs  []id.PermissionID
	Priority       int
	IsSystem       bool
	MaxAssignments int
	ExpiresAt      *time.Time
}

// Create registers a new role after validating its direct permissions exist
// and the proposed parent edges keep the graph acyclic.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Role, error) {
	roleID, err := id.SlugifyRole(input.Name)
	if err != nil {
		return nil, err
	}
	input.PermissionIDs = platformstrings.Dedupe(input.PermissionIDs)
	input.ParentIDs = platformstrings.Dedupe(input.ParentIDs)
	if err := s.validatePermissions(ctx, input.PermissionIDs); err != nil {
		return nil, err
	}
	if err := s.validateParents(ctx, roleID, input.ParentIDs); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	role := &models.Role{
		ID:             roleID,
		Name:           input.Name,
		Description:    input.Description,
		ParentIDs:      input.ParentIDs,
		PermissionIDs:  input.PermissionIDs,
		Priority:       input.Priority,
		IsActive:       true,
		IsSystem:       input.IsSystem,
		MaxAssignments: input.MaxAssignments,
		ExpiresAt:      input.ExpiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, role); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "role %s already exists", roleID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create role")
	}
	s.invalidate()
	observability.LogAudit(ctx, s.logger, s.publisher, audit.EventRoleCreated, audit.ResultSuccess,
		"resource_type", "role",
		"resource_id", roleID.String(),
		"action", "create",
		"role_name", input.Name,
	)
	return role, nil
}

// Get returns the role by slug identity.
func (s *Service) Get(ctx context.Context, roleID id.RoleID) (*models.Role, error) {
	role, err := s.store.Get(ctx, roleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "role %s not found", roleID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get role")
	}
	return role, nil
}

// List returns every role sorted by descending priority, with the slug as a
// stable tie-break. Expired roles are included; callers filter with
// IsAssignableAt when they need only live roles.
func (s *Service) List(ctx context.Context) ([]*models.Role, error) {
	roles, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list roles")
	}
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Priority != roles[j].Priority {
			return roles[i].Priority > roles[j].Priority
		}
		return roles[i].ID < roles[j].ID
	})
	return roles, nil
}

// Update applies a partial mutation. System roles keep their name and system
// flag; parent and permission set replacements are revalidated against the
// graph and catalog before anything persists.
func (s *Service) Update(ctx context.Context, roleID id.RoleID, update models.RoleUpdate) (*models.Role, error) {
	role, err := s.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if role.IsSystem {
		if update.Name != nil && *update.Name != role.Name {
			return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "system role %s cannot be renamed", roleID)
		}
		if update.IsSystem != nil && !*update.IsSystem {
			return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "system flag of role %s cannot be cleared", roleID)
		}
	}
	if update.PermissionIDs != nil {
		update.PermissionIDs = platformstrings.Dedupe(update.PermissionIDs)
		if err := s.validatePermissions(ctx, update.PermissionIDs); err != nil {
			return nil, err
		}
	}
	if update.ParentIDs != nil {
		update.ParentIDs = platformstrings.Dedupe(update.ParentIDs)
		if err := s.validateParents(ctx, roleID, update.ParentIDs); err != nil {
			return nil, err
		}
	}

	if update.Name != nil {
		role.Name = *update.Name
	}
	if update.Description != nil {
		role.Description = *update.Description
	}
	if update.ParentIDs != nil {
		role.ParentIDs = update.ParentIDs
	}
	if update.PermissionIDs != nil {
		role.PermissionIDs = update.PermissionIDs
	}
	if update.Priority != nil {
		role.Priority = *update.Priority
	}
	if update.IsActive != nil {
		role.IsActive = *update.IsActive
	}
	if update.IsSystem != nil {
		role.IsSystem = *update.IsSystem
	}
	if update.MaxAssignments != nil {
		role.MaxAssignments = *update.MaxAssignments
	}
	if update.ExpiresAt != nil {
		role.ExpiresAt = update.ExpiresAt
	}
	role.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.Update(ctx, role); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update role")
	}
	s.invalidate()
	observability.LogAudit(ctx, s.logger, s.publisher, audit.EventRoleUpdated, audit.ResultSuccess,
		"resource_type", "role",
		"resource_id", roleID.String(),
		"action", "update",
	)
	return role, nil
}

// Delete removes a role. System roles and roles with active assignments are
// protected; parent references from other roles are rewritten so the graph
// never points at a missing node.
func (s *Service) Delete(ctx context.Context, roleID id.RoleID) error {
	role, err := s.Get(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "system role %s cannot be deleted", roleID)
	}

	active, err := s.countActiveAssignments(ctx, roleID)
	if err != nil {
		return err
	}
	if active > 0 {
		return dErrors.Newf(dErrors.CodeConflict, "role %s has %d active assignments", roleID, active)
	}

	all, err := s.store.List(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list roles")
	}
	now := requestcontext.Now(ctx)
	for _, other := range all {
		if other.ID == roleID || !other.HasParent(roleID) {
			continue
		}
		kept := other.ParentIDs[:0]
		for _, pid := range other.ParentIDs {
			if pid != roleID {
				kept = append(kept, pid)
			}
		}
		other.ParentIDs = kept
		other.UpdatedAt = now
		if err := s.store.Update(ctx, other); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to detach parent role")
		}
	}

	if err := s.store.Delete(ctx, roleID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete role")
	}
	s.invalidate()
	observability.LogAudit(ctx, s.logger, s.publisher, audit.EventRoleDeleted, audit.ResultSuccess,
		"severity", string(audit.SeverityMedium),
		"resource_type", "role",
		"resource_id", roleID.String(),
		"action", "delete",
	)
	return nil
}

// Assign grants a role to a user by appending a ledger entry. The role must
// be active and unexpired, the user must not already hold an active
// assignment for it, and the role's assignment cap must have headroom.
func (s *Service) Assign(ctx context.Context, userID id.UserID, roleID id.RoleID, assignedBy id.UserID, opts models.AssignOptions) (*models.UserRoleAssignment, error) {
	if _, err := id.ParseUserID(string(userID)); err != nil {
		return nil, err
	}
	role, err := s.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if !role.IsAssignableAt(now) {
		return nil, dErrors.Newf(dErrors.CodeConflict, "role %s is not assignable", roleID)
	}

	existing, err := s.assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read assignment ledger")
	}
	for _, a := range existing {
		if a.RoleID == roleID && a.IsValidAt(now) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "user %s already holds role %s", userID, roleID)
		}
	}

	if role.MaxAssignments > 0 {
		held, err := s.countActiveAssignments(ctx, roleID)
		if err != nil {
			return nil, err
		}
		if held >= role.MaxAssignments {
			return nil, dErrors.Newf(dErrors.CodeConflict,
				"role %s is at its assignment limit (%d of %d)", roleID, held, role.MaxAssignments)
		}
	}

	assignment := &models.UserRoleAssignment{
		ID:         uuid.New().String(),
		UserID:     userID,
		RoleID:     roleID,
		AssignedBy: assignedBy,
		AssignedAt: now,
		ExpiresAt:  opts.ExpiresAt,
		Active:     true,
		Scope:      opts.Scope,
	}
	if err := s.assignments.Append(ctx, assignment); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append assignment")
	}
	s.invalidate()
	observability.LogAudit(ctx, s.logger, s.publisher, audit.EventRoleAssigned, audit.ResultSuccess,
		"actor", assignedBy.String(),
		"resource_type", "role",
		"resource_id", roleID.String(),
		"action", "assign",
		"user_id", userID.String(),
	)
	return assignment, nil
}

// Revoke logically revokes the user's active assignment of the role. The
// ledger entry survives with revocation metadata stamped.
func (s *Service) Revoke(ctx context.Context, userID id.UserID, roleID id.RoleID, revokedBy id.UserID, reason string) error {
	existing, err := s.assignments.ListByUser(ctx, userID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read assignment ledger")
	}
	now := requestcontext.Now(ctx)

	var target *models.UserRoleAssignment
	for _, a := range existing {
		if a.RoleID == roleID && a.Active {
			target = a
			break
		}
	}
	if target == nil {
		return dErrors.Newf(dErrors.CodeNotFound, "user %s has no active assignment of role %s", userID, roleID)
	}

	target.Active = false
	target.RevokedBy = revokedBy
	target.RevokedAt = &now
	target.RevokedReason = reason
	if err := s.assignments.Update(ctx, target); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke assignment")
	}
	s.invalidate()
	observability.LogAudit(ctx, s.logger, s.publisher, audit.EventRoleRevoked, audit.ResultSuccess,
		"severity", string(audit.SeverityMedium),
		"actor", revokedBy.String(),
		"resource_type", "role",
		"resource_id", roleID.String(),
		"action", "revoke",
		"user_id", userID.String(),
		"reason", reason,
	)
	return nil
}

// GetUserRoles returns the roles a user currently holds through valid
// assignments. Revoked and expired assignments, and expired or inactive
// roles, are excluded unless includeInactive is set, in which case every
// ledger entry contributes its role.
func (s *Service) GetUserRoles(ctx context.Context, userID id.UserID, includeInactive bool) ([]*models.Role, error) {
	entries, err := s.assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read assignment ledger")
	}
	now := requestcontext.Now(ctx)

	seen := make(map[id.RoleID]bool)
	var roles []*models.Role
	for _, a := range entries {
		if seen[a.RoleID] {
			continue
		}
		if !includeInactive && !a.IsValidAt(now) {
			continue
		}
		role, err := s.store.Get(ctx, a.RoleID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get role")
		}
		if !includeInactive && !role.IsAssignableAt(now) {
			continue
		}
		seen[a.RoleID] = true
		roles = append(roles, role)
	}

	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Priority != roles[j].Priority {
			return roles[i].Priority > roles[j].Priority
		}
		return roles[i].ID < roles[j].ID
	})
	return roles, nil
}

// ListAssignments returns the full ledger for a role, newest first.
func (s *Service) ListAssignments(ctx context.Context, roleID id.RoleID) ([]*models.UserRoleAssignment, error) {
	entries, err := s.assignments.ListByRole(ctx, roleID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read assignment ledger")
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AssignedAt.After(entries[j].AssignedAt)
	})
	return entries, nil
}

func (s *Service) countActiveAssignments(ctx context.Context, roleID id.RoleID) (int, error) {
	entries, err := s.assignments.ListByRole(ctx, roleID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read assignment ledger")
	}
	count := 0
	for _, a := range entries {
		if a.Active {
			count++
		}
	}
	return count, nil
}

func (s *Service) validatePermissions(ctx context.Context, permIDs []id.PermissionID) error {
	for _, permID := range permIDs {
		if _, err := s.catalog.Get(ctx, permID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeValidation, "permission %s does not exist", permID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check permission")
		}
	}
	return nil
}

// validateParents checks each parent exists and that the graph with the
// proposed edge set stays acyclic. The check runs against a snapshot of the
// whole graph before any store mutation.
func (s *Service) validateParents(ctx context.Context, roleID id.RoleID, parentIDs []id.RoleID) error {
	if len(parentIDs) == 0 {
		return nil
	}
	for _, pid := range parentIDs {
		if pid == roleID {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "role %s cannot be its own parent", roleID)
		}
		if _, err := s.store.Get(ctx, pid); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeValidation, "parent role %s does not exist", pid)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check parent role")
		}
	}

	all, err := s.store.List(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list roles")
	}
	adjacency := make(map[id.RoleID][]id.RoleID, len(all)+1)
	for _, role := range all {
		adjacency[role.ID] = role.ParentIDs
	}
	adjacency[roleID] = parentIDs

	if cycle := findCycle(adjacency, roleID); cycle != nil {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "parent set would create a cycle: %v", cycle)
	}
	return nil
}

// findCycle runs a depth-first search from start over the parent edges and
// returns the offending path when a back edge is found.
func findCycle(adjacency map[id.RoleID][]id.RoleID, start id.RoleID) []id.RoleID {
	onStack := make(map[id.RoleID]bool)
	explored := make(map[id.RoleID]bool)
	var path []id.RoleID

	var visit func(node id.RoleID) []id.RoleID
	visit = func(node id.RoleID) []id.RoleID {
		if explored[node] {
			return nil
		}
		if onStack[node] {
			return append(append([]id.RoleID(nil), path...), node)
		}
		onStack[node] = true
		path = append(path, node)
		for _, parent := range adjacency[node] {
			if cycle := visit(parent); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		onStack[node] = false
		explored[node] = true
		return nil
	}
	return visit(start)
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.InvalidateAll()
	}
}
