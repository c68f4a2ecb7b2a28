package audit

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config captures the externally supplied knobs of the audit log. Nothing in
// here is computed; callers load from the environment or start from
// DefaultConfig and override.
type Config struct {
	// DedupEnabled toggles fingerprint-based deduplication.
	DedupEnabled bool `envconfig:"AUDIT_DEDUP_ENABLED" default:"true"`
	// DedupWindow is how long two equal fingerprints collapse to one event.
	DedupWindow time.Duration `envconfig:"AUDIT_DEDUP_WINDOW" default:"5m"`

	// CorrelationEnabled toggles session-based correlation-id backfill.
	CorrelationEnabled bool `envconfig:"AUDIT_CORRELATION_ENABLED" default:"true"`

	// MaxEvents bounds the in-memory store; the oldest entries are trimmed
	// once the bound is exceeded.
	MaxEvents int `envconfig:"AUDIT_MAX_EVENTS" default:"10000"`

	// FlushInterval drives the periodic flush of buffered events to the
	// durable sink.
	FlushInterval time.Duration `envconfig:"AUDIT_FLUSH_INTERVAL" default:"30s"`

	// Retention periods per category, in days.
	RetentionStandardDays   int `envconfig:"AUDIT_RETENTION_STANDARD_DAYS" default:"90"`
	RetentionComplianceDays int `envconfig:"AUDIT_RETENTION_COMPLIANCE_DAYS" default:"2555"`
	RetentionSecurityDays   int `envconfig:"AUDIT_RETENTION_SECURITY_DAYS" default:"365"`
	RetentionLegalDays      int `envconfig:"AUDIT_RETENTION_LEGAL_DAYS" default:"2555"`

	// BruteForceThreshold is the login-failure count per origin that raises
	// a synthetic brute-force event; BruteForceWindow is the lookback.
	BruteForceThreshold int           `envconfig:"AUDIT_BRUTE_FORCE_THRESHOLD" default:"5"`
	BruteForceWindow    time.Duration `envconfig:"AUDIT_BRUTE_FORCE_WINDOW" default:"15m"`
}

// DefaultConfig returns the built-in defaults without consulting the
// environment.
func DefaultConfig() Config {
	return Config{
		DedupEnabled:            true,
		DedupWindow:             5 * time.Minute,
		CorrelationEnabled:      true,
		MaxEvents:               10000,
		FlushInterval:           30 * time.Second,
		RetentionStandardDays:   90,
		RetentionComplianceDays: 2555,
		RetentionSecurityDays:   365,
		RetentionLegalDays:      2555,
		BruteForceThreshold:     5,
		BruteForceWindow:        15 * time.Minute,
	}
}

// FromEnv loads configuration from AUDIT_* environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// periodDays returns the configured retention period for a category.
func (c Config) periodDays(cat RetentionCategory) int {
	switch cat {
	case RetentionCompliance:
		return c.RetentionComplianceDays
	case RetentionSecurity:
		return c.RetentionSecurityDays
	case RetentionLegal:
		return c.RetentionLegalDays
	default:
		return c.RetentionStandardDays
	}
}
