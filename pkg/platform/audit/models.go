// Package audit records security-relevant occurrences with classification,
// fingerprint deduplication, correlation grouping, and retention tagging.
// The log is a passive sink: it never gates the operations it records, and
// the only events it originates itself come from pattern detection.
package audit

import (
	"time"

	id "repoguard/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. The
// category drives retention classification and statistics grouping.
type EventCategory string

const (
	CategoryAuthentication EventCategory = "authentication"
	CategoryAuthorization  EventCategory = "authorization"
	CategorySession        EventCategory = "session"
	CategorySecurity       EventCategory = "security"
	CategorySystem         EventCategory = "system"
	CategoryData           EventCategory = "data"
	CategoryAdmin          EventCategory = "admin"
)

// EventType is the closed enumeration of recordable occurrences.
type EventType string

const (
	// Authentication events
	EventLoginSuccess    EventType = "auth.login_success"
	EventLoginFailure    EventType = "auth.login_failure"
	EventLogout          EventType = "auth.logout"
	EventTokenIssued     EventType = "auth.token_issued"
	EventTokenRevoked    EventType = "auth.token_revoked"
	EventPasswordChanged EventType = "auth.password_changed"

	// Authorization events
	EventPermissionGranted EventType = "authz.permission_granted"
	EventPermissionDenied  EventType = "authz.permission_denied"
	EventPermissionCreated EventType = "authz.permission_created"
	EventPermissionUpdated EventType = "authz.permission_updated"
	EventPermissionDeleted EventType = "authz.permission_deleted"
	EventRoleCreated       EventType = "authz.role_created"
	EventRoleUpdated       EventType = "authz.role_updated"
	EventRoleDeleted       EventType = "authz.role_deleted"
	EventRoleAssigned      EventType = "authz.role_assigned"
	EventRoleRevoked       EventType = "authz.role_revoked"

	// Session events
	EventSessionCreated    EventType = "session.created"
	EventSessionExpired    EventType = "session.expired"
	EventSessionTerminated EventType = "session.terminated"

	// Security events
	EventBruteForceDetected EventType = "security.brute_force_detected"
	EventSuspiciousActivity EventType = "security.suspicious_activity"
	EventAccessViolation    EventType = "security.access_violation"
	EventRateLimitExceeded  EventType = "security.rate_limit_exceeded"

	// System events
	EventSystemError    EventType = "system.error"
	EventConfigChanged  EventType = "system.config_changed"
	EventServiceStarted EventType = "system.service_started"
	EventServiceStopped EventType = "system.service_stopped"

	// Data events
	EventDataExported        EventType = "data.exported"
	EventDataDeleted         EventType = "data.deleted"
	EventSensitiveDataAccess EventType = "data.sensitive_access"
	EventPIIAccess           EventType = "data.pii_access"

	// Admin events
	EventAdminAction EventType = "admin.action"
	EventUserCreated EventType = "admin.user_created"
	EventUserDeleted EventType = "admin.user_deleted"
)

// typeCategories maps each event type to its category.
var typeCategories = map[EventType]EventCategory{
	EventLoginSuccess:    CategoryAuthentication,
	EventLoginFailure:    CategoryAuthentication,
	EventLogout:          CategoryAuthentication,
	EventTokenIssued:     CategoryAuthentication,
	EventTokenRevoked:    CategoryAuthentication,
	EventPasswordChanged: CategoryAuthentication,

	EventPermissionGranted: CategoryAuthorization,
	EventPermissionDenied:  CategoryAuthorization,
	EventPermissionCreated: CategoryAuthorization,
	EventPermissionUpdated: CategoryAuthorization,
	EventPermissionDeleted: CategoryAuthorization,
	EventRoleCreated:       CategoryAuthorization,
	EventRoleUpdated:       CategoryAuthorization,
	EventRoleDeleted:       CategoryAuthorization,
	EventRoleAssigned:      CategoryAuthorization,
	EventRoleRevoked:       CategoryAuthorization,

	EventSessionCreated:    CategorySession,
	EventSessionExpired:    CategorySession,
	EventSessionTerminated: CategorySession,

	EventBruteForceDetected: CategorySecurity,
	EventSuspiciousActivity: CategorySecurity,
	EventAccessViolation:    CategorySecurity,
	EventRateLimitExceeded:  CategorySecurity,

	EventSystemError:    CategorySystem,
	EventConfigChanged:  CategorySystem,
	EventServiceStarted: CategorySystem,
	EventServiceStopped: CategorySystem,

	EventDataExported:        CategoryData,
	EventDataDeleted:         CategoryData,
	EventSensitiveDataAccess: CategoryData,
	EventPIIAccess:           CategoryData,

	EventAdminAction: CategoryAdmin,
	EventUserCreated: CategoryAdmin,
	EventUserDeleted: CategoryAdmin,
}

// Category returns the EventCategory for this event type. Unknown types
// default to CategorySystem.
func (t EventType) Category() EventCategory {
	if cat, ok := typeCategories[t]; ok {
		return cat
	}
	return CategorySystem
}

// IsValid reports whether the type belongs to the closed enumeration.
func (t EventType) IsValid() bool {
	_, ok := typeCategories[t]
	return ok
}

// Severity grades an event for alerting and retention purposes.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the numeric ordering of the severity; unknown severities
// rank below low.
func (s Severity) Rank() int { return severityRank[s] }

// Result is the outcome of the audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultError   Result = "error"
	ResultDenied  Result = "denied"
)

// Details is the free-form bag attached to an event.
type Details struct {
	Parameters map[string]any `json:"parameters,omitempty"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	Error      string         `json:"error,omitempty"`
	Related    []string       `json:"related,omitempty"`

	// Suspicious marks events flagged by detection or by the caller; the
	// statistics view counts them separately.
	Suspicious bool `json:"suspicious,omitempty"`
}

// Event is a single audit record. Callers populate the descriptive fields;
// LogEvent stamps identity, timestamp, category, fingerprint, and retention.
// Stored events are immutable except for correlation-id backfill through
// CreateCorrelation.
type Event struct {
	ID        id.EventID    `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Type      EventType     `json:"type"`
	Category  EventCategory `json:"category"`
	Severity  Severity      `json:"severity"`
	Result    Result        `json:"result"`

	ActorID   id.UserID    `json:"actor_id,omitempty"`
	SessionID id.SessionID `json:"session_id,omitempty"`
	Workspace string       `json:"workspace,omitempty"`

	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	Action       string `json:"action,omitempty"`

	// Origin is the network origin (client IP) when known.
	Origin string `json:"origin,omitempty"`

	CorrelationID id.CorrelationID `json:"correlation_id,omitempty"`
	Details       Details          `json:"details,omitempty"`

	Fingerprint string    `json:"fingerprint"`
	Retention   Retention `json:"retention"`
}

// RetentionCategory is the compliance bucket governing how long an event
// must be kept.
type RetentionCategory string

const (
	RetentionStandard   RetentionCategory = "standard"
	RetentionCompliance RetentionCategory = "compliance"
	RetentionSecurity   RetentionCategory = "security"
	RetentionLegal      RetentionCategory = "legal"
)

// Retention is the derived retention record, computed once at log time.
type Retention struct {
	Category RetentionCategory `json:"category"`
	// PeriodDays is how long the event must be kept.
	PeriodDays int `json:"period_days"`
	// ArchiveAfterDays is the archive threshold: 10% of the period.
	ArchiveAfterDays int `json:"archive_after_days"`
	// DeleteAfter is the absolute instant past which the event may be purged.
	DeleteAfter time.Time `json:"delete_after"`
}
