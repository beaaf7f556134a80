package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memcube/model"
)

func TestCreateUser(t *testing.T) {
	r := New()

	require.NoError(t, r.CreateUser("alice"))
	require.ErrorIs(t, r.CreateUser("alice"), ErrUserExists)
	assert.True(t, r.HasUser("alice"))
	assert.False(t, r.HasUser("bob"))
}

func TestGetOrCreateUser(t *testing.T) {
	r := New()

	assert.Equal(t, model.UserID("bob"), r.GetOrCreateUser("bob"))
	// Idempotent, never fails.
	assert.Equal(t, model.UserID("bob"), r.GetOrCreateUser("bob"))
	assert.True(t, r.HasUser("bob"))
}

func TestGrantAccess(t *testing.T) {
	r := New()
	require.NoError(t, r.CreateUser("alice"))

	t.Run("UnknownUser", func(t *testing.T) {
		require.ErrorIs(t, r.GrantAccess("ghost", "c1"), ErrUserNotFound)
	})

	t.Run("PreservesGrantOrder", func(t *testing.T) {
		require.NoError(t, r.GrantAccess("alice", "c2"))
		require.NoError(t, r.GrantAccess("alice", "c1"))
		require.NoError(t, r.GrantAccess("alice", "c3"))

		assert.Equal(t, []model.CubeID{"c2", "c1", "c3"}, r.AccessibleCubes("alice"))
	})

	t.Run("Idempotent", func(t *testing.T) {
		require.NoError(t, r.GrantAccess("alice", "c1"))
		assert.Equal(t, []model.CubeID{"c2", "c1", "c3"}, r.AccessibleCubes("alice"))
	})
}

func TestRevokeAccess(t *testing.T) {
	r := New()
	require.NoError(t, r.CreateUser("alice"))
	require.NoError(t, r.GrantAccess("alice", "c1"))
	require.NoError(t, r.GrantAccess("alice", "c2"))

	require.NoError(t, r.RevokeAccess("alice", "c1"))
	assert.Equal(t, []model.CubeID{"c2"}, r.AccessibleCubes("alice"))

	// Missing edge is a no-op.
	require.NoError(t, r.RevokeAccess("alice", "c1"))

	require.ErrorIs(t, r.RevokeAccess("ghost", "c1"), ErrUserNotFound)
}

func TestAccessibleCubesEmpty(t *testing.T) {
	r := New()
	require.NoError(t, r.CreateUser("alice"))

	assert.Empty(t, r.AccessibleCubes("alice"))
	assert.Empty(t, r.AccessibleCubes("ghost"))
}
