// Package sessiontest provides a conformance suite for session.Store
// implementations.
package sessiontest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/session"
)

// StoreFactory returns an empty store. The suite closes it.
type StoreFactory func(t *testing.T) session.Store

// RunStoreTests runs the conformance suite against stores built by factory.
// nativeExpiry selects whether DeleteIdle is expected to remove entries.
func RunStoreTests(t *testing.T, factory StoreFactory, nativeExpiry bool) {
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, factory) })
	t.Run("GetUnknown", func(t *testing.T) { testGetUnknown(t, factory) })
	t.Run("ReturnsCopies", func(t *testing.T) { testReturnsCopies(t, factory) })
	t.Run("Touch", func(t *testing.T) { testTouch(t, factory) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, factory) })
	t.Run("LenClear", func(t *testing.T) { testLenClear(t, factory) })
	t.Run("Expire", func(t *testing.T) { testExpire(t, factory) })
	if !nativeExpiry {
		t.Run("DeleteIdle", func(t *testing.T) { testDeleteIdle(t, factory) })
	}
}

// Fixture builds a session with a unique token.
func Fixture(token, name string, lastSeen time.Time) *session.Session {
	return &session.Session{
		ID:         "id-" + token,
		Token:      token,
		Principal:  auth.Principal{Name: name, Roles: []string{"admin"}, Backend: "static_file"},
		CreatedAt:  lastSeen,
		LastSeenAt: lastSeen,
	}
}

func open(t *testing.T, factory StoreFactory) session.Store {
	s := factory(t)
	t.Cleanup(func() {
		_ = s.Clear(context.Background())
		_ = s.Close()
	})
	return s
}

func testPutGet(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	store := open(t, factory)
	now := time.Now().Truncate(time.Millisecond)

	want := Fixture("tok-a", "alice", now)
	require.NoError(t, store.Put(ctx, want, time.Minute))

	got, err := store.Get(ctx, "tok-a")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Token, got.Token)
	assert.Equal(t, want.Principal, got.Principal)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, want.LastSeenAt.Equal(got.LastSeenAt))
}

func testGetUnknown(t *testing.T, factory StoreFactory) {
	store := open(t, factory)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, session.ErrNotFound)

	_, err = store.Touch(context.Background(), "nope", time.Now(), time.Minute)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func testReturnsCopies(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	store := open(t, factory)

	require.NoError(t, store.Put(ctx, Fixture("tok-c", "carol", time.Now()), time.Minute))

	got, err := store.Get(ctx, "tok-c")
	require.NoError(t, err)
	got.Principal.Name = "mallory"
	got.Principal.Roles[0] = "root"

	again, err := store.Get(ctx, "tok-c")
	require.NoError(t, err)
	assert.Equal(t, "carol", again.Principal.Name)
	assert.Equal(t, []string{"admin"}, again.Principal.Roles)
}

func testTouch(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	store := open(t, factory)
	start := time.Now().Add(-time.Minute).Truncate(time.Millisecond)

	require.NoError(t, store.Put(ctx, Fixture("tok-t", "tom", start), time.Hour))

	later := start.Add(30 * time.Second)
	got, err := store.Touch(ctx, "tok-t", later, time.Hour)
	require.NoError(t, err)
	assert.True(t, later.Equal(got.LastSeenAt))
	assert.True(t, start.Equal(got.CreatedAt))

	// LastSeenAt never moves backwards.
	got, err = store.Touch(ctx, "tok-t", start, time.Hour)
	require.NoError(t, err)
	assert.True(t, later.Equal(got.LastSeenAt))
}

func testDelete(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	store := open(t, factory)

	require.NoError(t, store.Put(ctx, Fixture("tok-d", "dave", time.Now()), time.Minute))
	require.NoError(t, store.Delete(ctx, "tok-d"))
	require.NoError(t, store.Delete(ctx, "tok-d"))

	_, err := store.Get(ctx, "tok-d")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func testLenClear(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	store := open(t, factory)

	for _, tok := range []string{"tok-1", "tok-2", "tok-3"} {
		require.NoError(t, store.Put(ctx, Fixture(tok, "u", time.Now()), time.Minute))
	}
	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, store.Clear(ctx))
	n, err = store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testDeleteIdle(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	store := open(t, factory)
	now := time.Now()

	require.NoError(t, store.Put(ctx, Fixture("old", "o", now.Add(-time.Hour)), 0))
	require.NoError(t, store.Put(ctx, Fixture("fresh", "f", now), 0))

	removed, err := store.DeleteIdle(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = store.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func testExpire(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	store := open(t, factory)
	now := time.Now().Truncate(time.Millisecond)
	cutoff := now.Add(-time.Minute)

	require.NoError(t, store.Put(ctx, Fixture("idle", "i", now.Add(-time.Hour)), 0))
	require.NoError(t, store.Put(ctx, Fixture("live", "l", now), 0))

	removed, err := store.Expire(ctx, "idle", cutoff)
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = store.Get(ctx, "idle")
	assert.ErrorIs(t, err, session.ErrNotFound)

	removed, err = store.Expire(ctx, "live", cutoff)
	require.NoError(t, err)
	assert.False(t, removed)
	_, err = store.Get(ctx, "live")
	assert.NoError(t, err)

	removed, err = store.Expire(ctx, "unknown", cutoff)
	require.NoError(t, err)
	assert.False(t, removed)
}
