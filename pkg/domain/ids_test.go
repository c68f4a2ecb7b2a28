package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "repoguard/pkg/domain-errors"
)

func TestSlugifyRole(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want RoleID
	}{
		{"simple", "viewer", "viewer"},
		{"mixed case", "Security Auditor", "security-auditor"},
		{"underscores", "repo_admin", "repo-admin"},
		{"surrounding whitespace", "  Release Manager  ", "release-manager"},
		{"punctuation dropped", "Ops (on-call)!", "ops-on-call"},
		{"hyphen runs collapse", "a -- b", "a-b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SlugifyRole(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("empty slug rejected", func(t *testing.T) {
		_, err := SlugifyRole("!!!")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParsePermissionID(t *testing.T) {
	t.Run("normalizes case and whitespace", func(t *testing.T) {
		got, err := ParsePermissionID("  Repo ", " READ ")
		require.NoError(t, err)
		assert.Equal(t, PermissionID("repo:read"), got)
		assert.Equal(t, "repo", got.Resource())
		assert.Equal(t, "read", got.Action())
	})

	t.Run("requires both halves", func(t *testing.T) {
		_, err := ParsePermissionID("repo", "")
		require.Error(t, err)
		_, err = ParsePermissionID("", "read")
		require.Error(t, err)
	})

	t.Run("rejects colon in resource", func(t *testing.T) {
		_, err := ParsePermissionID("repo:sub", "read")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseUserID(t *testing.T) {
	_, err := ParseUserID("   ")
	require.Error(t, err)

	got, err := ParseUserID("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, UserID("alice@example.com"), got)
}

func TestNewCorrelationID(t *testing.T) {
	a := NewCorrelationID()
	b := NewCorrelationID()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a.String(), "corr-"))
}
