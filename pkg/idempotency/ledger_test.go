package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryMarks struct {
	mu     sync.Mutex
	values map[string]time.Duration
	err    error
}

func (m *memoryMarks) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.values == nil {
		m.values = map[string]time.Duration{}
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = ttl
	return true, nil
}

func (m *memoryMarks) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryMarks) IdempotencyKey(scope, id string) string {
	return "mk:idempotency:" + scope + ":" + id
}

func TestLedgerMarksOnce(t *testing.T) {
	ctx := context.Background()
	marks := &memoryMarks{}
	ledger, err := NewLedger(marks, "stripe-webhook", time.Hour)
	require.NoError(t, err)

	seen, err := ledger.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Equal(t, time.Hour, marks.values["mk:idempotency:stripe-webhook:evt_1"])

	seen, err = ledger.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, ledger.Release(ctx, "evt_1"))
	seen, err = ledger.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen, "released ids are handled again")
}

func TestProcessedEventsKeepsConsumersApart(t *testing.T) {
	ctx := context.Background()
	marks := &memoryMarks{}
	email, err := ProcessedEvents(marks, "notification-email", time.Hour)
	require.NoError(t, err)
	analytics, err := ProcessedEvents(marks, "order-analytics", time.Hour)
	require.NoError(t, err)

	const eventID = "5b0c3c9e-7d55-4a55-9f51-2f1d1b6c2a10"
	seen, err := email.CheckAndMark(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = analytics.CheckAndMark(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, seen)

	assert.Contains(t, marks.values, "mk:idempotency:evt:processed:notification-email:"+eventID)
	assert.Contains(t, marks.values, "mk:idempotency:evt:processed:order-analytics:"+eventID)
}

func TestLedgerSurfacesStoreErrors(t *testing.T) {
	ledger, err := NewLedger(&memoryMarks{err: errors.New("redis down")}, "stripe-webhook", time.Hour)
	require.NoError(t, err)

	_, err = ledger.CheckAndMark(context.Background(), "evt_1")
	assert.ErrorContains(t, err, "redis down")
}

func TestLedgerValidation(t *testing.T) {
	marks := &memoryMarks{}
	_, err := NewLedger(nil, "scope", time.Hour)
	assert.Error(t, err)
	_, err = NewLedger(marks, "  ", time.Hour)
	assert.Error(t, err)
	_, err = NewLedger(marks, "scope", -time.Second)
	assert.Error(t, err)
	_, err = ProcessedEvents(marks, "", time.Hour)
	assert.Error(t, err)

	ledger, err := NewLedger(marks, "scope", 0)
	require.NoError(t, err)
	_, err = ledger.CheckAndMark(context.Background(), " ")
	assert.Error(t, err)
	assert.Error(t, ledger.Release(context.Background(), ""))
}
