package locks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, 2*time.Second, nil), mr
}

func TestRedisLockerRunsAndReleases(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	ran := false
	err := locker.WithLock(ctx, "booking:7:2026-10-19:10:00", func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:booking:7:2026-10-19:10:00"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("lock:booking:7:2026-10-19:10:00"))
}

func TestRedisLockerRejectsConcurrentHolder(t *testing.T) {
	locker, _ := newRedisLocker(t)
	ctx := context.Background()

	err := locker.WithLock(ctx, "k", func(ctx context.Context) error {
		inner := locker.WithLock(ctx, "k", func(context.Context) error { return nil })
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestRedisLockerDoesNotDeleteForeignToken(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	err := locker.WithLock(ctx, "k", func(ctx context.Context) error {
		// Simulate expiry followed by another holder taking the key.
		require.NoError(t, mr.Set("lock:k", "someone-else"))
		return nil
	})
	require.NoError(t, err)
	got, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLockerReturnsFnError(t *testing.T) {
	locker, mr := newRedisLocker(t)
	boom := errors.New("boom")
	err := locker.WithLock(context.Background(), "k", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lock:k"))
}

func TestLocalLocker(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()
	err := locker.WithLock(ctx, "a", func(ctx context.Context) error {
		assert.ErrorIs(t, locker.WithLock(ctx, "a", func(context.Context) error { return nil }), ErrLockNotAcquired)
		assert.NoError(t, locker.WithLock(ctx, "b", func(context.Context) error { return nil }))
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, locker.WithLock(ctx, "a", func(context.Context) error { return nil }))
}
