package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestLockerExclusive(t *testing.T) {
	client, _ := setupRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "k", token))
	_, ok, err = locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerReleaseIgnoresForeignToken(t *testing.T) {
	client, mr := setupRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(ctx, "k", "someone-else"))
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, token, got)
}

func TestLockerExpires(t *testing.T) {
	client, mr := setupRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerValidation(t *testing.T) {
	var nilLocker *Locker
	_, _, err := nilLocker.TryLock(context.Background(), "k", time.Second)
	require.ErrorIs(t, err, ErrNotConfigured)

	client, _ := setupRedis(t)
	locker := NewLocker(client)
	_, _, err = locker.TryLock(context.Background(), "", time.Second)
	require.ErrorIs(t, err, ErrEmptyKey)
	_, _, err = locker.TryLock(context.Background(), "k", 0)
	require.ErrorIs(t, err, ErrInvalidTTL)
}

func TestMembershipLocker(t *testing.T) {
	client, mr := setupRedis(t)
	locker := NewMembershipLocker(client, time.Minute)
	ctx := context.Background()

	release, ok, err := locker.Acquire(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("planbilling:membership:42"))

	_, ok, err = locker.Acquire(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists("planbilling:membership:42"))
}

func TestNilMembershipLockerAlwaysGrants(t *testing.T) {
	var locker *MembershipLocker
	release, ok, err := locker.Acquire(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	release()
}
