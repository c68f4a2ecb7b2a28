package access

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoguard/internal/access/models"
	id "repoguard/pkg/domain"
	"repoguard/pkg/testutil"
)

func newCore(t *testing.T) *Core {
	t.Helper()
	core, err := New(Options{Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	return core
}

func TestSeedDefaults(t *testing.T) {
	ctx := testutil.ContextAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	core := newCore(t)
	require.NoError(t, core.Bootstrap(ctx, nil))

	t.Run("seeding is idempotent", func(t *testing.T) {
		require.NoError(t, core.Bootstrap(ctx, nil))
	})

	t.Run("core permissions installed", func(t *testing.T) {
		perm, err := core.Catalog.Get(ctx, "repo:read")
		require.NoError(t, err)
		assert.True(t, perm.IsCore)
		assert.Equal(t, models.CategoryRepository, perm.Category)
	})

	t.Run("system roles installed", func(t *testing.T) {
		role, err := core.Roles.Get(ctx, "admin")
		require.NoError(t, err)
		assert.True(t, role.IsSystem)
		assert.Equal(t, []id.RoleID{"contributor"}, role.ParentIDs)
	})

	t.Run("admin inherits through the chain", func(t *testing.T) {
		perms, err := core.Resolver.GetRolePermissions(ctx, "admin")
		require.NoError(t, err)
		assert.Contains(t, perms, id.PermissionID("repo:read"))
		assert.Contains(t, perms, id.PermissionID("repo:write"))
		assert.Contains(t, perms, id.PermissionID("system:admin"))
	})
}

func TestCoreEndToEnd(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := testutil.ContextAt(now)
	core := newCore(t)
	require.NoError(t, core.Bootstrap(ctx, nil))

	_, err := core.Roles.Assign(ctx, "alice", "contributor", "root", models.AssignOptions{})
	require.NoError(t, err)

	granted, err := core.Resolver.HasPermission(ctx, "alice", "repo:write")
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = core.Resolver.HasPermission(ctx, "alice", "system:admin")
	require.NoError(t, err)
	assert.False(t, granted)

	// revocation invalidates the cached resolution immediately
	require.NoError(t, core.Roles.Revoke(ctx, "alice", "contributor", "root", "offboarding"))
	granted, err = core.Resolver.HasPermission(ctx, "alice", "repo:write")
	require.NoError(t, err)
	assert.False(t, granted)
}
