package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFindByCredentials(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	acct := &Account{
		Username:    "alice",
		Active:      true,
		Gold:        500,
		ServerLogin: 2,
	}
	require.NoError(t, db.CreateAccount(ctx, acct, "secret"))
	require.NotZero(t, acct.ID)

	t.Run("match", func(t *testing.T) {
		got, err := db.FindByCredentials(ctx, "alice", "secret")
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, int32(500), got.Gold)
		assert.Equal(t, int32(2), got.ServerLogin)
		assert.True(t, got.Active)
		assert.False(t, got.Banned)
		assert.Nil(t, got.Reward)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := db.FindByCredentials(ctx, "alice", "nope")
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := db.FindByCredentials(ctx, "bob", "secret")
		assert.Equal(t, ErrNotFound, err)
	})
}

func TestMarkLoginLogout(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	acct := &Account{Username: "carol", Active: true, ServerLogin: 1}
	require.NoError(t, db.CreateAccount(ctx, acct, "pw"))

	require.NoError(t, db.MarkLogin(ctx, acct.ID))
	got, err := db.FindByCredentials(ctx, "carol", "pw")
	require.NoError(t, err)
	assert.NotZero(t, got.LastLoginAt)
	assert.Zero(t, got.LastLogoutAt)

	require.NoError(t, db.MarkLogout(ctx, acct.ID))
	got, err = db.FindByCredentials(ctx, "carol", "pw")
	require.NoError(t, err)
	assert.NotZero(t, got.LastLogoutAt)
	assert.GreaterOrEqual(t, got.LastLogoutAt, got.LastLoginAt)
}

func TestRewardPayload(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	reward := "starter-pack"
	acct := &Account{Username: "dave", Active: true, ServerLogin: 1, Reward: &reward}
	require.NoError(t, db.CreateAccount(ctx, acct, "pw"))

	got, err := db.FindByCredentials(ctx, "dave", "pw")
	require.NoError(t, err)
	require.NotNil(t, got.Reward)
	assert.Equal(t, "starter-pack", *got.Reward)
}
