package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "repoguard/pkg/domain"
	audit "repoguard/pkg/platform/audit"
	"repoguard/pkg/testutil"
)

type capturingPublisher struct {
	events []audit.Event
}

func (c *capturingPublisher) LogEvent(_ context.Context, event audit.Event) {
	c.events = append(c.events, event)
}

func TestLogAuditBuildsEventFromAttrs(t *testing.T) {
	pub := &capturingPublisher{}
	ctx := testutil.ContextWithOrigin(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), "10.0.0.1")

	LogAudit(ctx, nil, pub, audit.EventRoleAssigned, audit.ResultSuccess,
		"actor", "root",
		"resource_type", "role",
		"resource_id", "viewer",
		"action", "assign",
		"severity", "medium",
		"user_id", "alice",
	)

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.Equal(t, audit.EventRoleAssigned, e.Type)
	assert.Equal(t, id.UserID("root"), e.ActorID)
	assert.Equal(t, "role", e.ResourceType)
	assert.Equal(t, "viewer", e.ResourceID)
	assert.Equal(t, "assign", e.Action)
	assert.Equal(t, audit.SeverityMedium, e.Severity)
	assert.Equal(t, "10.0.0.1", e.Origin)
	assert.Equal(t, "alice", e.Details.Parameters["user_id"], "leftover attrs become parameters")
	assert.NotContains(t, e.Details.Parameters, "actor")
}

func TestLogAuditActorIDFallbackKey(t *testing.T) {
	pub := &capturingPublisher{}

	LogAudit(context.Background(), nil, pub, audit.EventPermissionGranted, audit.ResultSuccess,
		"actor_id", "bob",
	)

	require.Len(t, pub.events, 1)
	assert.Equal(t, id.UserID("bob"), pub.events[0].ActorID)
	assert.NotContains(t, pub.events[0].Details.Parameters, "actor_id")
}

func TestLogAuditDefaults(t *testing.T) {
	pub := &capturingPublisher{}

	LogAudit(context.Background(), nil, pub, audit.EventRoleCreated, audit.ResultSuccess)

	require.Len(t, pub.events, 1)
	assert.Equal(t, audit.SeverityLow, pub.events[0].Severity)
	assert.Nil(t, pub.events[0].Details.Parameters)
}

func TestLogAuditNilPublisher(t *testing.T) {
	// must not panic
	LogAudit(context.Background(), nil, nil, audit.EventRoleCreated, audit.ResultSuccess)
}
