// Package config holds the tunable knobs of the access-control core. Values
// are externally supplied, never computed: callers load them from the
// environment or start from DefaultConfig and override.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config captures resolver and role-graph behavior.
type Config struct {
	// MaxInheritanceDepth caps role graph traversal. Traversal past the cap
	// is silently truncated, never an error.
	MaxInheritanceDepth int `envconfig:"ACCESS_MAX_INHERITANCE_DEPTH" default:"10"`

	// CacheEnabled toggles resolver result caching.
	CacheEnabled bool `envconfig:"ACCESS_CACHE_ENABLED" default:"true"`

	// CacheTTL bounds how long a resolved permission set may be served
	// without recomputation.
	CacheTTL time.Duration `envconfig:"ACCESS_CACHE_TTL" default:"5m"`
}

// DefaultConfig returns the built-in defaults without consulting the
// environment. Tests start here.
func DefaultConfig() Config {
	return Config{
		MaxInheritanceDepth: 10,
		CacheEnabled:        true,
		CacheTTL:            5 * time.Minute,
	}
}

// FromEnv loads configuration from ACCESS_* environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
