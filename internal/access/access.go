// Package access wires the permission catalog, role graph, and resolver into
// a single core a gateway embeds in-process.
package access

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"repoguard/internal/access/config"
	"repoguard/internal/access/metrics"
	"repoguard/internal/access/ports"
	catalogsvc "repoguard/internal/access/service/catalog"
	"repoguard/internal/access/service/resolver"
	rolesvc "repoguard/internal/access/service/roles"
	assignmentstore "repoguard/internal/access/store/assignments"
	catalogstore "repoguard/internal/access/store/catalog"
	rolestore "repoguard/internal/access/store/roles"
)

// Core bundles the access-control services over shared in-memory stores.
type Core struct {
	Catalog  *catalogsvc.Service
	Roles    *rolesvc.Service
	Resolver *resolver.Resolver
}

// Options configures a Core. Zero values fall back to defaults: built-in
// config, the default Prometheus registerer, and no audit publisher.
type Options struct {
	Config     *config.Config
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Audit      ports.AuditPublisher
}

// New builds a fully wired core with fresh in-memory stores. Mutating
// services share the resolver's cache invalidator so every catalog, role, or
// assignment change drops cached resolutions.
func New(opts Options) (*Core, error) {
	cfg := config.DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	catStore := catalogstore.New()
	roleStore := rolestore.New()
	assignStore := assignmentstore.New()

	m := metrics.New(reg)

	res, err := resolver.New(roleStore, assignStore,
		resolver.WithConfig(cfg),
		resolver.WithLogger(opts.Logger),
		resolver.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	catalog, err := catalogsvc.New(catStore, roleStore,
		catalogsvc.WithLogger(opts.Logger),
		catalogsvc.WithCacheInvalidator(res),
	)
	if err != nil {
		return nil, err
	}

	roles, err := rolesvc.New(roleStore, catStore, assignStore,
		rolesvc.WithLogger(opts.Logger),
		rolesvc.WithCacheInvalidator(res),
		rolesvc.WithAuditPublisher(opts.Audit),
	)
	if err != nil {
		return nil, err
	}

	return &Core{Catalog: catalog, Roles: roles, Resolver: res}, nil
}

// Bootstrap seeds the default catalog and system roles. Safe to call on
// every start.
func (c *Core) Bootstrap(ctx context.Context, logger *slog.Logger) error {
	return SeedDefaults(ctx, c.Catalog, c.Roles, logger)
}
