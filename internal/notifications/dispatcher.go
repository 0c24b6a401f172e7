// Package notifications queues and delivers transactional buyer emails.
package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notifier accepts a notification for asynchronous delivery.
type Notifier interface {
	Notify(ctx context.Context, event payloads.NotificationRequestedEvent) error
}

// Dispatcher writes notification_requested events to the outbox.
type Dispatcher struct {
	tx     txRunner
	outbox outboxPublisher
}

func NewDispatcher(tx txRunner, publisher outboxPublisher) (*Dispatcher, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Dispatcher{tx: tx, outbox: publisher}, nil
}

func (d *Dispatcher) Notify(ctx context.Context, event payloads.NotificationRequestedEvent) error {
	if strings.TrimSpace(event.Recipient) == "" {
		return fmt.Errorf("notification recipient required")
	}
	if !event.Kind.IsValid() {
		return fmt.Errorf("unknown notification kind %q", event.Kind)
	}
	aggregateID := uuid.New()
	if event.OrderID != nil {
		aggregateID = *event.OrderID
	}
	return d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return d.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   aggregateID,
			Version:       1,
			Data:          event,
		})
	})
}

// SendBestEffort hands event to notifier under its own timeout. Failures are
// logged and never returned; the caller's cancellation does not abort it.
func SendBestEffort(ctx context.Context, notifier Notifier, timeout time.Duration, logg *logger.Logger, event payloads.NotificationRequestedEvent) {
	if notifier == nil {
		return
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := notifier.Notify(sendCtx, event); err != nil && logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"notification_kind": event.Kind,
		})
		if event.OrderID != nil {
			logCtx = logg.WithOrderID(logCtx, event.OrderID.String())
		}
		logg.Error(logCtx, "notification.dispatch_failed", err)
	}
}
