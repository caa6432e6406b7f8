package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*AggregateLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAggregateLocker(client, time.Minute), mr
}

func TestAggregateLockerExclusive(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "scan:lock")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "scan:lock")
	require.ErrorIs(t, err, ErrLockHeld)

	// A different key is independent.
	otherRelease, err := locker.Acquire(ctx, "other:lock")
	require.NoError(t, err)
	require.NoError(t, otherRelease(ctx))

	require.NoError(t, release(ctx))

	release, err = locker.Acquire(ctx, "scan:lock")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestAggregateLockerReleaseOnlyOwnToken(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "scan:lock")
	require.NoError(t, err)

	// Simulate expiry and takeover by another operation.
	mr.FastForward(2 * time.Minute)
	takeover, err := locker.Acquire(ctx, "scan:lock")
	require.NoError(t, err)

	// The stale release must not free the new holder's lock.
	require.NoError(t, release(ctx))
	_, err = locker.Acquire(ctx, "scan:lock")
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, takeover(ctx))
}

func TestAggregateLockerNilClientNoops(t *testing.T) {
	var locker *AggregateLocker
	release, err := locker.Acquire(context.Background(), "scan:lock")
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
}
