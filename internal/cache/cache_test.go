package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

type status struct {
	Active bool `json:"active"`
}

func TestAsideWithoutRedisAlwaysLoads(t *testing.T) {
	SetClient(nil)
	calls := 0
	var dest status
	for i := 0; i < 2; i++ {
		err := Aside(context.Background(), "k", &dest, time.Minute, func() error {
			calls++
			dest.Active = true
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	assert.True(t, dest.Active)
}

func TestAsideCachesLoadedValue(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	calls := 0
	load := func(dest *status) func() error {
		return func() error {
			calls++
			dest.Active = true
			return nil
		}
	}

	var first status
	require.NoError(t, Aside(ctx, "user:x:status", &first, time.Minute, load(&first)))
	var second status
	require.NoError(t, Aside(ctx, "user:x:status", &second, time.Minute, load(&second)))

	assert.Equal(t, 1, calls)
	assert.True(t, second.Active)
	assert.True(t, mr.Exists("user:x:status"))

	mr.FastForward(2 * time.Minute)
	var third status
	require.NoError(t, Aside(ctx, "user:x:status", &third, time.Minute, load(&third)))
	assert.Equal(t, 2, calls)
}

func TestAsideDoesNotCacheErrors(t *testing.T) {
	mr := useMiniredis(t)
	boom := errors.New("boom")

	var dest status
	err := Aside(context.Background(), "k", &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestInvalidateUser(t *testing.T) {
	mr := useMiniredis(t)
	id := uuid.New()
	require.NoError(t, mr.Set(UserStatusKey(id), `{"active":true}`))

	InvalidateUser(context.Background(), id)
	assert.False(t, mr.Exists(UserStatusKey(id)))
}

func TestRevokeToken(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	assert.False(t, IsRevoked(ctx, "jti-1"))
	require.NoError(t, RevokeToken(ctx, "jti-1", time.Hour))
	assert.True(t, IsRevoked(ctx, "jti-1"))

	mr.FastForward(2 * time.Hour)
	assert.False(t, IsRevoked(ctx, "jti-1"))

	// Already-expired tokens are not stored.
	require.NoError(t, RevokeToken(ctx, "jti-2", -time.Second))
	assert.False(t, IsRevoked(ctx, "jti-2"))
}
