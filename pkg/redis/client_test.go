package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

func TestIncrWithTTLExpiresOnFirstHit(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}

	for want := int64(1); want <= 3; want++ {
		hits, err := client.IncrWithTTL(ctx, "rl:ip:checkout:10.0.0.1", 90*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, hits)
	}
	assert.Equal(t, 90*time.Second, fake.ttl["rl:ip:checkout:10.0.0.1"])
	assert.Equal(t, 1, fake.expirations, "expiry is set once per window")

	_, err := client.IncrWithTTL(ctx, "rl:ip:checkout:10.0.0.1", 0)
	require.Error(t, err)
}

func TestIncrWithTTLRepairsCounterWithoutExpiry(t *testing.T) {
	fake := newFakeCommands()
	fake.data["rl:caller:checkout:abc"] = "7"
	client := &Client{cmd: fake}

	hits, err := client.IncrWithTTL(context.Background(), "rl:caller:checkout:abc", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(8), hits)
	assert.Equal(t, time.Minute, fake.ttl["rl:caller:checkout:abc"])
}

func TestLookupReportsMissingKeys(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}

	_, found, err := client.Lookup(ctx, "mk:idempotency:a")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.Set(ctx, "mk:idempotency:a", `{"state":"done"}`, time.Hour))
	value, found, err := client.Lookup(ctx, "mk:idempotency:a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"state":"done"}`, value)

	require.NoError(t, client.Del(ctx, "mk:idempotency:a"))
	_, found, err = client.Lookup(ctx, "mk:idempotency:a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelIfValueOnlyReleasesOwner(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}

	ok, err := client.SetNX(ctx, "mk:lock:cron", "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := client.DelIfValue(ctx, "mk:lock:cron", "owner-b")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = client.DelIfValue(ctx, "mk:lock:cron", "owner-a")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestNilConnectionFails(t *testing.T) {
	ctx := context.Background()
	client := &Client{}

	assert.ErrorIs(t, client.Ping(ctx), errNotConnected)
	_, _, err := client.Lookup(ctx, "k")
	assert.ErrorIs(t, err, errNotConnected)
	_, err = client.IncrWithTTL(ctx, "k", time.Second)
	assert.ErrorIs(t, err, errNotConnected)
	assert.NoError(t, client.Close())
}

func TestIdempotencyKey(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "mk:idempotency:stripe:evt_1", client.IdempotencyKey("stripe", "evt_1"))
	assert.Equal(t, "mk:idempotency:stripe", client.IdempotencyKey(" stripe ", ""))
}

func TestConnOptions(t *testing.T) {
	opts, err := connOptions(config.RedisConfig{
		URL:         "redis://:secret@cache.internal:6380/2",
		DB:          5,
		PoolSize:    20,
		DialTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB, "url database wins")
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)

	opts, err = connOptions(config.RedisConfig{Address: "localhost:6379", DB: 1})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 1, opts.DB)

	_, err = connOptions(config.RedisConfig{})
	require.Error(t, err)
}

// fakeCommands interprets the two scripts the client sends.
type fakeCommands struct {
	data        map[string]string
	ttl         map[string]time.Duration
	expirations int
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	f.ttl[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	f.ttl[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.data, key)
		delete(f.ttl, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeCommands) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	key := keys[0]
	switch script {
	case windowScript:
		var hits int64
		fmt.Sscan(f.data[key], &hits)
		hits++
		f.data[key] = fmt.Sprint(hits)
		if _, ok := f.ttl[key]; hits == 1 || !ok {
			f.ttl[key] = time.Duration(args[0].(int64)) * time.Millisecond
			f.expirations++
		}
		return redis.NewCmdResult(hits, nil)
	case releaseScript:
		if f.data[key] == fmt.Sprint(args[0]) {
			delete(f.data, key)
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
}
