package access

import (
	"context"
	"log/slog"

	"repoguard/internal/access/models"
	catalogsvc "repoguard/internal/access/service/catalog"
	rolesvc "repoguard/internal/access/service/roles"
	id "repoguard/pkg/domain"
	dErrors "repoguard/pkg/domain-errors"
)

type seedPermission struct {
	resource    string
	action      string
	displayName string
	category    models.PermissionCategory
	level       int
}

var defaultPermissions = []seedPermission{
	{"repo", "read", "Read repositories", models.CategoryRepository, 10},
	{"repo", "write", "Push to repositories", models.CategoryRepository, 30},
	{"repo", "delete", "Delete repositories", models.CategoryRepository, 70},
	{"repo", "admin", "Administer repositories", models.CategoryRepository, 80},
	{"workspace", "read", "Read workspaces", models.CategoryWorkspace, 10},
	{"workspace", "admin", "Administer workspaces", models.CategoryWorkspace, 80},
	{"user", "read", "Read user profiles", models.CategoryUser, 10},
	{"user", "manage", "Manage users", models.CategoryUser, 60},
	{"security", "audit", "Read the audit log", models.CategorySecurity, 50},
	{"security", "admin", "Administer security settings", models.CategorySecurity, 90},
	{"system", "admin", "Full system administration", models.CategorySystem, 100},
}

type seedRole struct {
	name        string
	description string
	parents     []id.RoleID
	permissions [][2]string
	priority    int
}

var defaultRoles = []seedRole{
	{
		name:        "viewer",
		description: "Read-only access to repositories and workspaces",
		permissions: [][2]string{{"repo", "read"}, {"workspace", "read"}, {"user", "read"}},
		priority:    10,
	},
	{
		name:        "contributor",
		description: "Push access on top of read access",
		parents:     []id.RoleID{"viewer"},
		permissions: [][2]string{{"repo", "write"}},
		priority:    20,
	},
	{
		name:        "admin",
		description: "Full administrative access",
		parents:     []id.RoleID{"contributor"},
		permissions: [][2]string{{"repo", "admin"}, {"repo", "delete"}, {"workspace", "admin"}, {"user", "manage"}, {"security", "admin"}, {"system", "admin"}},
		priority:    90,
	},
	{
		name:        "security-auditor",
		description: "Read access to the audit log",
		parents:     []id.RoleID{"viewer"},
		permissions: [][2]string{{"security", "audit"}},
		priority:    40,
	},
}

// SeedDefaults installs the core permission catalog and the built-in system
// roles. Seeding is idempotent: entries that already exist are left alone,
// so it runs on every service start.
func SeedDefaults(ctx context.Context, catalog *catalogsvc.Service, roles *rolesvc.Service, logger *slog.Logger) error {
	for _, p := range defaultPermissions {
		_, err := catalog.Create(ctx, catalogsvc.CreateInput{
			Resource:    p.resource,
			Action:      p.action,
			DisplayName: p.displayName,
			Category:    p.category,
			Level:       p.level,
			IsCore:      true,
		})
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				continue
			}
			return err
		}
	}

	for _, r := range defaultRoles {
		permIDs := make([]id.PermissionID, 0, len(r.permissions))
		for _, pair := range r.permissions {
			permID, err := id.ParsePermissionID(pair[0], pair[1])
			if err != nil {
				return err
			}
			permIDs = append(permIDs, permID)
		}
		_, err := roles.Create(ctx, rolesvc.CreateInput{
			Name:          r.name,
			Description:   r.description,
			ParentIDs:     r.parents,
			PermissionIDs: permIDs,
			Priority:      r.priority,
			IsSystem:      true,
		})
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				continue
			}
			return err
		}
		if logger != nil {
			logger.InfoContext(ctx, "seeded system role", "role", r.name)
		}
	}
	return nil
}
