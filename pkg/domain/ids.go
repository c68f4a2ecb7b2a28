// Package domain holds the typed identifiers shared across the access-control
// and audit subsystems. Identifiers are domain primitives that enforce
// validity at parse time so trust boundaries reject malformed input before it
// reaches business logic.
package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	dErrors "repoguard/pkg/domain-errors"
)

// UserID identifies a user of the upstream source-control API. User ids are
// opaque strings supplied by the gateway (account slugs, UUIDs, emails); the
// core only requires them to be non-empty.
type UserID string

// RoleID is the slug identity of a role, derived from its name.
type RoleID string

// PermissionID is the "resource:action" identity of a permission,
// lower-cased and trimmed.
type PermissionID string

// EventID identifies a stored audit event.
type EventID string

// CorrelationID links causally or session-related audit events.
type CorrelationID string

// SessionID identifies an authentication session referenced by audit events.
type SessionID string

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user id cannot be empty")
	}
	return UserID(s), nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9-]+`)
var slugCollapse = regexp.MustCompile(`-{2,}`)

// SlugifyRole derives the slug identity of a role from its display name.
// Names are lower-cased, whitespace and underscores become hyphens, any
// remaining non [a-z0-9-] runes are dropped and hyphen runs collapse.
func SlugifyRole(name string) (RoleID, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role name produces an empty slug")
	}
	return RoleID(s), nil
}

// ParsePermissionID normalizes a (resource, action) pair into the permission
// identity. Both parts are required.
func ParsePermissionID(resource, action string) (PermissionID, error) {
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))
	if resource == "" || action == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "permission requires both resource and action")
	}
	if strings.Contains(resource, ":") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "permission resource cannot contain ':'")
	}
	return PermissionID(resource + ":" + action), nil
}

// Resource returns the resource half of the permission identity.
func (p PermissionID) Resource() string {
	if i := strings.IndexByte(string(p), ':'); i >= 0 {
		return string(p)[:i]
	}
	return string(p)
}

// Action returns the action half of the permission identity.
func (p PermissionID) Action() string {
	if i := strings.IndexByte(string(p), ':'); i >= 0 {
		return string(p)[i+1:]
	}
	return ""
}

// NewEventID mints a fresh audit event identity.
func NewEventID() EventID {
	return EventID(uuid.New().String())
}

// NewCorrelationID mints a fresh correlation identity.
func NewCorrelationID() CorrelationID {
	return CorrelationID("corr-" + uuid.New().String())
}

func (u UserID) String() string        { return string(u) }
func (r RoleID) String() string        { return string(r) }
func (p PermissionID) String() string  { return string(p) }
func (e EventID) String() string       { return string(e) }
func (c CorrelationID) String() string { return string(c) }
func (s SessionID) String() string     { return string(s) }
