package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryRedis struct {
	values map[string]string
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryRedis) CronLockKey(name string) string { return "mk:lock:cron:" + name }

func TestRedisLockerIsExclusivePerJob(t *testing.T) {
	store := &memoryRedis{values: map[string]string{}}
	locker, err := NewRedisLocker(store, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}
	ctx := context.Background()

	release, ok, err := locker.TryLock(ctx, "shift_prefill")
	if err != nil || !ok {
		t.Fatalf("expected first lock, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := locker.TryLock(ctx, "shift_prefill"); ok {
		t.Fatal("expected second lock on same job to fail")
	}
	if _, ok, _ := locker.TryLock(ctx, "outbox_retention"); !ok {
		t.Fatal("expected other job to lock independently")
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, _ := locker.TryLock(ctx, "shift_prefill"); !ok {
		t.Fatal("expected lock after release")
	}
}

func TestRedisLockerReleaseKeepsForeignOwner(t *testing.T) {
	store := &memoryRedis{values: map[string]string{}}
	locker, _ := NewRedisLocker(store, time.Minute)
	ctx := context.Background()

	release, _, _ := locker.TryLock(ctx, "job")
	store.values["mk:lock:cron:job"] = "someone-else"
	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["mk:lock:cron:job"] != "someone-else" {
		t.Fatal("release removed a lock it no longer owned")
	}
}

func TestRedisLockerOwnerNamesInstance(t *testing.T) {
	t.Setenv("MEDOK_WORKER_ID", "cron-worker-7")
	store := &memoryRedis{values: map[string]string{}}
	locker, err := NewRedisLocker(store, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}

	if _, ok, err := locker.TryLock(context.Background(), "shift_prefill"); err != nil || !ok {
		t.Fatalf("expected lock, ok=%v err=%v", ok, err)
	}
	owner := store.values["mk:lock:cron:shift_prefill"]
	if !strings.HasPrefix(owner, "cron-worker-7/") {
		t.Fatalf("unexpected owner %q", owner)
	}
}
