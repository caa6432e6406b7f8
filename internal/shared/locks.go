package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indicates the aggregate lock is held by another operation.
var ErrLockHeld = errors.New("aggregate lock held")

// AggregateLocker serializes cross-process critical sections. Row-level
// FOR UPDATE locks remain the primary in-database serialization; this
// guards sections that span more than one transaction, such as the
// background scans.
type AggregateLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAggregateLocker constructs the locker.
func NewAggregateLocker(client *redis.Client, ttl time.Duration) *AggregateLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &AggregateLocker{client: client, ttl: ttl}
}

// Acquire takes the lock for key, returning a release func. A held lock
// yields ErrLockHeld rather than blocking.
func (l *AggregateLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	if l == nil || l.client == nil {
		return func(context.Context) error { return nil }, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, key)
	}
	release := func(ctx context.Context) error {
		// Release only our own token so an expired lock taken over by
		// another operation is left alone.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		return l.client.Eval(ctx, script, []string{key}, token).Err()
	}
	return release, nil
}
