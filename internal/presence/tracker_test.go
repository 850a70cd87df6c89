package presence

import (
	"chatview/backend/internal/errs"
	"chatview/backend/internal/storage/storagetest"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_OnlineOffline(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(storagetest.NewSQLite(t))

	online, err := tr.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, online, "unknown user is offline")

	token, err := tr.SetOnline(ctx, "alice", "sess-1")
	require.NoError(t, err)

	online, err = tr.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, online)

	sid, err := tr.SessionIDFor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sid)

	uid, err := tr.UserIDForSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", uid)

	cleared, err := tr.SetOfflineBySession(ctx, "sess-1", token)
	require.NoError(t, err)
	assert.True(t, cleared)

	online, err = tr.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, online)

	_, err = tr.SessionIDFor(ctx, "alice")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTracker_StaleDisconnectKeepsNewSession(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(storagetest.NewSQLite(t))

	oldToken, err := tr.SetOnline(ctx, "bob", "old")
	require.NoError(t, err)
	_, err = tr.SetOnline(ctx, "bob", "new")
	require.NoError(t, err)

	cleared, err := tr.SetOfflineBySession(ctx, "old", oldToken)
	require.NoError(t, err)
	assert.False(t, cleared)

	online, err := tr.IsOnline(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, online, "reconnected user must stay online")

	sid, err := tr.SessionIDFor(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "new", sid)
}

func TestTracker_SameSessionOlderTokenIsStale(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(storagetest.NewSQLite(t))

	first, err := tr.SetOnline(ctx, "carol", "reused")
	require.NoError(t, err)
	second, err := tr.SetOnline(ctx, "carol", "reused")
	require.NoError(t, err)
	require.Greater(t, second, first)

	cleared, err := tr.SetOfflineBySession(ctx, "reused", first)
	require.NoError(t, err)
	assert.False(t, cleared)

	cleared, err = tr.SetOfflineBySession(ctx, "reused", second)
	require.NoError(t, err)
	assert.True(t, cleared)
}

func TestTracker_SetOfflineUnconditional(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(storagetest.NewSQLite(t))

	_, err := tr.SetOnline(ctx, "dave", "s")
	require.NoError(t, err)
	require.NoError(t, tr.SetOffline(ctx, "dave"))

	online, err := tr.IsOnline(ctx, "dave")
	require.NoError(t, err)
	assert.False(t, online)

	assert.ErrorIs(t, tr.SetOffline(ctx, "nobody"), errs.ErrNotFound)
}
