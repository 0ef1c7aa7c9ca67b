package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	store := New(rdb)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "sid-1", time.Now().Add(time.Hour)))
	revoked, err := store.IsRevoked(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "sid-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = store.IsRevoked(ctx, "sid-1")
	require.NoError(t, err)
	assert.False(t, revoked, "revocation expires with the token")

	require.NoError(t, store.Revoke(ctx, "expired", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(keyPrefix+"expired"))
}

func TestMemoryStore(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "sid", now.Add(time.Minute)))
	revoked, _ := store.IsRevoked(ctx, "sid")
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = store.IsRevoked(ctx, "sid")
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "other", now.Add(time.Minute)))
	assert.NotContains(t, store.revoked, "sid", "expired entries are swept")
}
