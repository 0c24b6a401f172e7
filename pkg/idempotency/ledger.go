// Package idempotency remembers which deliveries were already handled so
// at-least-once sources (Stripe webhooks, Pub/Sub) act on each one once.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/marketplace-backend/pkg/redis"
)

const processedScope = "evt:processed"

const markValue = "1"

// Ledger keeps one mark per id under scope for ttl. A zero ttl keeps marks
// until they are released.
type Ledger struct {
	store redis.MarkStore
	scope string
	ttl   time.Duration
}

func NewLedger(store redis.MarkStore, scope string, ttl time.Duration) (*Ledger, error) {
	scope = strings.TrimSpace(scope)
	switch {
	case store == nil:
		return nil, errors.New("mark store is required")
	case scope == "":
		return nil, errors.New("ledger scope is required")
	case ttl < 0:
		return nil, errors.New("ledger ttl must not be negative")
	}
	return &Ledger{store: store, scope: scope, ttl: ttl}, nil
}

// ProcessedEvents is the ledger of outbox events one consumer has handled.
// Marks land at mk:idempotency:evt:processed:<consumer>:<event_id>.
func ProcessedEvents(store redis.MarkStore, consumer string, ttl time.Duration) (*Ledger, error) {
	if strings.TrimSpace(consumer) == "" {
		return nil, errors.New("consumer name is required")
	}
	return NewLedger(store, processedScope+":"+strings.TrimSpace(consumer), ttl)
}

// CheckAndMark marks id and reports whether an earlier delivery already had.
func (l *Ledger) CheckAndMark(ctx context.Context, id string) (bool, error) {
	key, err := l.key(id)
	if err != nil {
		return false, err
	}
	fresh, err := l.store.SetNX(ctx, key, markValue, l.ttl)
	if err != nil {
		return false, fmt.Errorf("mark %s: %w", key, err)
	}
	return !fresh, nil
}

// Release drops the mark for id so the next delivery is handled again.
func (l *Ledger) Release(ctx context.Context, id string) error {
	key, err := l.key(id)
	if err != nil {
		return err
	}
	return l.store.Del(ctx, key)
}

func (l *Ledger) key(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.New("id is required")
	}
	return l.store.IdempotencyKey(l.scope, id), nil
}
