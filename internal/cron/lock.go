package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/medok/medok-backend/pkg/instance"
)

const defaultLockTTL = 10 * time.Minute

// Locker hands out per-job exclusive leases across cron-worker replicas.
type Locker interface {
	TryLock(ctx context.Context, job string) (release func(context.Context) error, ok bool, err error)
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CronLockKey(name string) string
}

// RedisLocker leases `mk:lock:cron:<job>` with SETNX and a TTL.
type RedisLocker struct {
	client redisStore
	ttl    time.Duration
}

func NewRedisLocker(client redisStore, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, job string) (func(context.Context) error, bool, error) {
	if job == "" {
		return nil, false, errors.New("job name is required")
	}
	key := l.client.CronLockKey(job)
	owner := instance.ID() + "/" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func(ctx context.Context) error {
		return l.release(ctx, key, owner)
	}, true, nil
}

// release deletes the key only while this lease still owns it.
func (l *RedisLocker) release(ctx context.Context, key, owner string) error {
	value, err := l.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != owner {
		return nil
	}
	if err := l.client.Del(ctx, key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}
