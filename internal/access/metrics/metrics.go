// Package metrics registers Prometheus metrics for the access module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the access-control core.
type Metrics struct {
	Resolutions        prometheus.Counter
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	CacheInvalidations prometheus.Counter
	PermissionChecks   *prometheus.CounterVec
}

// New creates and registers all access metrics on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Resolutions: factory.NewCounter(prometheus.CounterOpts{
			Name: "repoguard_access_resolutions_total",
			Help: "Total number of effective permission set computations",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "repoguard_access_cache_hits_total",
			Help: "Resolver cache hits",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "repoguard_access_cache_misses_total",
			Help: "Resolver cache misses",
		}),
		CacheInvalidations: factory.NewCounter(prometheus.CounterOpts{
			Name: "repoguard_access_cache_invalidations_total",
			Help: "Coarse resolver cache invalidations triggered by mutations",
		}),
		PermissionChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "repoguard_access_permission_checks_total",
			Help: "Permission checks by outcome",
		}, []string{"outcome"}),
	}
}
