package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memoryLockStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
	delErr error
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) DelIfValue(_ context.Context, key, value string) (bool, error) {
	if m.delErr != nil {
		return false, m.delErr
	}
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockRunsOneHolderAtATime(t *testing.T) {
	store := newMemoryLockStore()
	first, err := NewRedisLock(store, "mk:cron-worker:lock:test", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "mk:cron-worker:lock:test", time.Minute)

	var nestedRan bool
	ran, err := first.Do(context.Background(), func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("held section should carry the lock ttl as a deadline")
		}
		held, err := second.Do(ctx, func(context.Context) error {
			nestedRan = true
			return nil
		})
		if held || err != nil {
			t.Errorf("second holder: held=%v err=%v", held, err)
		}
		return nil
	})
	if !ran || err != nil {
		t.Fatalf("first holder: ran=%v err=%v", ran, err)
	}
	if nestedRan {
		t.Fatal("second holder ran while the lock was held")
	}
	if store.ttls["mk:cron-worker:lock:test"] != defaultLockTTL {
		t.Fatalf("expected default ttl, got %s", store.ttls["mk:cron-worker:lock:test"])
	}
	if _, held := store.values["mk:cron-worker:lock:test"]; held {
		t.Fatal("lock should be released after the held section")
	}
}

func TestRedisLockKeepsOtherHoldersToken(t *testing.T) {
	store := newMemoryLockStore()
	lock, _ := NewRedisLock(store, "key", time.Minute)
	_, err := lock.Do(context.Background(), func(context.Context) error {
		// the ttl lapsed and another replica took the key
		store.values["key"] = "other-replica"
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if store.values["key"] != "other-replica" {
		t.Fatal("release must not delete a lock owned by someone else")
	}
}

func TestRedisLockReportsFailures(t *testing.T) {
	boom := errors.New("job failed")
	store := newMemoryLockStore()
	store.delErr = errors.New("redis down")
	lock, _ := NewRedisLock(store, "key", time.Minute)

	ran, err := lock.Do(context.Background(), func(context.Context) error { return boom })
	if !ran || !errors.Is(err, boom) {
		t.Fatalf("expected job error, got ran=%v err=%v", ran, err)
	}
	if err == nil || !errors.Is(err, store.delErr) {
		t.Fatalf("expected release error to be joined, got %v", err)
	}

	down, _ := NewRedisLock(&memoryLockStore{err: errors.New("down")}, "key", 0)
	if ran, err := down.Do(context.Background(), func(context.Context) error { return nil }); ran || err == nil {
		t.Fatalf("expected acquire error, got ran=%v err=%v", ran, err)
	}
}

func TestRedisLockValidation(t *testing.T) {
	if _, err := NewRedisLock(nil, "key", 0); err == nil {
		t.Fatal("expected store error")
	}
	if _, err := NewRedisLock(newMemoryLockStore(), "", 0); err == nil {
		t.Fatal("expected key error")
	}
}
