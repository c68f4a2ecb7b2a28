// Package resolver computes effective permission sets over the role graph.
// Resolution walks the inheritance graph depth-first with a visited set and
// a depth cap, unions direct and inherited permissions, and caches results
// for a bounded TTL. Authorization outcomes are reported by the caller, not
// here; the resolver only answers set membership.
package resolver

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"repoguard/internal/access/config"
	"repoguard/internal/access/metrics"
	"repoguard/internal/access/models"
	"repoguard/internal/access/ports"
	id "repoguard/pkg/domain"
	dErrors "repoguard/pkg/domain-errors"
	"repoguard/pkg/requestcontext"
)

// Resolver answers "what can this user do" queries.
type Resolver struct {
	roles       ports.RoleStore
	assignments ports.AssignmentStore
	cfg         config.Config
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer

	group singleflight.Group

	mu         sync.RWMutex
	generation uint64
	userCache  map[id.UserID]cacheEntry
	roleCache  map[id.RoleID]cacheEntry
}

type cacheEntry struct {
	permissions []id.PermissionID
	storedAt    time.Time
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithConfig(cfg config.Config) Option {
	return func(r *Resolver) { r.cfg = cfg }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func New(roles ports.RoleStore, assignments ports.AssignmentStore, opts ...Option) (*Resolver, error) {
	if roles == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "role store is required")
	}
	if assignments == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "assignment store is required")
	}
	r := &Resolver{
		roles:       roles,
		assignments: assignments,
		cfg:         config.DefaultConfig(),
		tracer:      otel.Tracer("repoguard/access/resolver"),
		userCache:   make(map[id.UserID]cacheEntry),
		roleCache:   make(map[id.RoleID]cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// GetRolePermissions returns the effective permission set of a single role:
// its direct permissions unioned with everything inherited from its parent
// chain. Inactive or expired ancestors contribute nothing. The result is
// sorted for deterministic comparison.
func (r *Resolver) GetRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.GetRolePermissions",
		trace.WithAttributes(attribute.String("role_id", roleID.String())))
	defer span.End()

	if perms, ok := r.cachedRole(roleID); ok {
		r.countCacheHit()
		return perms, nil
	}
	r.countCacheMiss()

	gen := r.currentGeneration()
	result, err, _ := r.group.Do("role:"+roleID.String(), func() (any, error) {
		return r.resolveRole(ctx, roleID)
	})
	if err != nil {
		return nil, err
	}
	perms := result.([]id.PermissionID)
	r.storeRole(roleID, perms, gen)
	return perms, nil
}

// GetUserPermissions returns the union of effective permissions across every
// role the user holds through valid assignments.
func (r *Resolver) GetUserPermissions(ctx context.Context, userID id.UserID) ([]id.PermissionID, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.GetUserPermissions",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	if perms, ok := r.cachedUser(userID); ok {
		r.countCacheHit()
		return perms, nil
	}
	r.countCacheMiss()

	gen := r.currentGeneration()
	result, err, _ := r.group.Do("user:"+userID.String(), func() (any, error) {
		return r.resolveUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	perms := result.([]id.PermissionID)
	r.storeUser(userID, perms, gen)
	return perms, nil
}

// HasPermission reports whether the user's effective set contains the
// permission.
func (r *Resolver) HasPermission(ctx context.Context, userID id.UserID, permID id.PermissionID) (bool, error) {
	perms, err := r.GetUserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	granted := containsPermission(perms, permID)
	r.countCheck(granted)
	return granted, nil
}

// HasAnyPermission reports whether the user holds at least one of the given
// permissions. An empty query is never satisfied.
func (r *Resolver) HasAnyPermission(ctx context.Context, userID id.UserID, permIDs []id.PermissionID) (bool, error) {
	perms, err := r.GetUserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, permID := range permIDs {
		if containsPermission(perms, permID) {
			r.countCheck(true)
			return true, nil
		}
	}
	r.countCheck(false)
	return false, nil
}

// HasAllPermissions reports whether the user holds every given permission.
// An empty query is vacuously satisfied.
func (r *Resolver) HasAllPermissions(ctx context.Context, userID id.UserID, permIDs []id.PermissionID) (bool, error) {
	perms, err := r.GetUserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, permID := range permIDs {
		if !containsPermission(perms, permID) {
			r.countCheck(false)
			return false, nil
		}
	}
	r.countCheck(true)
	return true, nil
}

// InvalidateAll drops every cached resolution. Mutating services call this
// through ports.CacheInvalidator after any catalog, role, or assignment
// change; the next query recomputes from the stores.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.generation++
	r.userCache = make(map[id.UserID]cacheEntry)
	r.roleCache = make(map[id.RoleID]cacheEntry)
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.CacheInvalidations.Inc()
	}
}

func (r *Resolver) resolveRole(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	if r.metrics != nil {
		r.metrics.Resolutions.Inc()
	}
	graph, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	set := make(map[id.PermissionID]struct{})
	visited := make(map[id.RoleID]bool)
	r.collect(graph, roleID, now, 0, visited, set)
	return sortedSet(set), nil
}

func (r *Resolver) resolveUser(ctx context.Context, userID id.UserID) ([]id.PermissionID, error) {
	if r.metrics != nil {
		r.metrics.Resolutions.Inc()
	}
	entries, err := r.assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read assignment ledger")
	}
	graph, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	set := make(map[id.PermissionID]struct{})
	for _, a := range entries {
		if !a.IsValidAt(now) {
			continue
		}
		visited := make(map[id.RoleID]bool)
		r.collect(graph, a.RoleID, now, 0, visited, set)
	}
	return sortedSet(set), nil
}

// collect unions the role's direct permissions and recurses into its
// parents. A missing, inactive, or expired role is skipped, not an error:
// the graph may reference roles that lapsed after assignment. Depth past the
// configured cap truncates silently.
func (r *Resolver) collect(graph map[id.RoleID]*models.Role, roleID id.RoleID, now time.Time, depth int, visited map[id.RoleID]bool, set map[id.PermissionID]struct{}) {
	if visited[roleID] || depth > r.cfg.MaxInheritanceDepth {
		if depth > r.cfg.MaxInheritanceDepth && r.logger != nil {
			r.logger.Warn("inheritance depth cap reached",
				"role_id", roleID.String(),
				"max_depth", r.cfg.MaxInheritanceDepth,
			)
		}
		return
	}
	visited[roleID] = true

	role, ok := graph[roleID]
	if !ok || !role.IsAssignableAt(now) {
		return
	}
	for _, permID := range role.PermissionIDs {
		set[permID] = struct{}{}
	}
	for _, parentID := range role.ParentIDs {
		r.collect(graph, parentID, now, depth+1, visited, set)
	}
}

func (r *Resolver) snapshot(ctx context.Context) (map[id.RoleID]*models.Role, error) {
	all, err := r.roles.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list roles")
	}
	graph := make(map[id.RoleID]*models.Role, len(all))
	for _, role := range all {
		graph[role.ID] = role
	}
	return graph, nil
}

func (r *Resolver) cachedUser(userID id.UserID) ([]id.PermissionID, bool) {
	if !r.cfg.CacheEnabled {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.userCache[userID]
	if !ok || time.Since(entry.storedAt) >= r.cfg.CacheTTL {
		return nil, false
	}
	return entry.permissions, true
}

func (r *Resolver) cachedRole(roleID id.RoleID) ([]id.PermissionID, bool) {
	if !r.cfg.CacheEnabled {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.roleCache[roleID]
	if !ok || time.Since(entry.storedAt) >= r.cfg.CacheTTL {
		return nil, false
	}
	return entry.permissions, true
}

func (r *Resolver) currentGeneration() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// storeUser caches the resolution unless an invalidation landed after the
// resolution started; the stores may have changed underneath it by then.
func (r *Resolver) storeUser(userID id.UserID, perms []id.PermissionID, gen uint64) {
	if !r.cfg.CacheEnabled {
		return
	}
	r.mu.Lock()
	if r.generation == gen {
		r.userCache[userID] = cacheEntry{permissions: perms, storedAt: time.Now()}
	}
	r.mu.Unlock()
}

func (r *Resolver) storeRole(roleID id.RoleID, perms []id.PermissionID, gen uint64) {
	if !r.cfg.CacheEnabled {
		return
	}
	r.mu.Lock()
	if r.generation == gen {
		r.roleCache[roleID] = cacheEntry{permissions: perms, storedAt: time.Now()}
	}
	r.mu.Unlock()
}

func (r *Resolver) countCacheHit() {
	if r.metrics != nil {
		r.metrics.CacheHits.Inc()
	}
}

func (r *Resolver) countCacheMiss() {
	if r.metrics != nil {
		r.metrics.CacheMisses.Inc()
	}
}

func (r *Resolver) countCheck(granted bool) {
	if r.metrics == nil {
		return
	}
	outcome := "denied"
	if granted {
		outcome = "granted"
	}
	r.metrics.PermissionChecks.WithLabelValues(outcome).Inc()
}

func containsPermission(perms []id.PermissionID, permID id.PermissionID) bool {
	for _, p := range perms {
		if p == permID {
			return true
		}
	}
	return false
}

func sortedSet(set map[id.PermissionID]struct{}) []id.PermissionID {
	out := make([]id.PermissionID, 0, len(set))
	for permID := range set {
		out = append(out, permID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
