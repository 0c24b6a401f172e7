package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultLockTTL = 5 * time.Minute

// Lock lets one cron-worker replica at a time run a cycle.
type Lock interface {
	// Do runs fn while holding the lock. It reports false without calling
	// fn when another holder has it.
	Do(ctx context.Context, fn func(context.Context) error) (bool, error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
}

// RedisLock holds a random token at key for ttl. fn gets a context bounded
// by ttl so it stops before another replica can take over.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token func() string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("lock store required")
	}
	if key == "" {
		return nil, errors.New("lock key required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl, token: uuid.NewString}, nil
}

func (l *RedisLock) Do(ctx context.Context, fn func(context.Context) error) (bool, error) {
	token := l.token()
	held, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !held {
		return false, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, l.ttl)
	runErr := fn(runCtx)
	cancel()

	if _, err := l.store.DelIfValue(context.WithoutCancel(ctx), l.key, token); err != nil {
		runErr = multierr.Append(runErr, fmt.Errorf("release %s: %w", l.key, err))
	}
	return true, runErr
}
