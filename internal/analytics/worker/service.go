package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/internal/analytics/router"
	"github.com/angelmondragon/marketplace-backend/internal/analytics/types"
	"github.com/angelmondragon/marketplace-backend/internal/analytics/writer"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
)

// ConsumerName names this consumer in processed-event marks.
const ConsumerName = "order-analytics"

// Handler turns one order event into analytics rows.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type messageSource interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type processedLedger interface {
	CheckAndMark(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// Consumer reads the orders topic and writes each event at most once per
// event id. Redis holds the processed marks.
type Consumer struct {
	subscription messageSource
	handler      Handler
	ledger       processedLedger
	logg         *logger.Logger
}

func NewConsumer(subscription messageSource, handler Handler, ledger processedLedger, logg *logger.Logger) (*Consumer, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case ledger == nil:
		return nil, errors.New("processed ledger is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Consumer{subscription: subscription, handler: handler, ledger: ledger, logg: logg}, nil
}

type outcome int

const (
	ack outcome = iota
	redeliver
)

// Run blocks until ctx is canceled or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if c.consume(msgCtx, msg) == redeliver {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) consume(ctx context.Context, msg *gcppubsub.Message) outcome {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	envelope, eventID, err := decodeMessage(msg)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "analytics.message_dropped")
		return ack
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":    envelope.EventID,
		"event_type":  envelope.EventType,
		"occurred_at": envelope.OccurredAt.Format(time.RFC3339Nano),
	})
	if envelope.AggregateType == enums.AggregateOrder {
		logCtx = c.logg.WithOrderID(logCtx, envelope.AggregateID)
	}

	seen, err := c.ledger.CheckAndMark(logCtx, eventID.String())
	if err != nil {
		c.logg.Error(logCtx, "analytics.ledger_unavailable", err)
		return redeliver
	}
	if seen {
		c.logg.Debug(logCtx, "analytics.duplicate_skipped")
		return ack
	}

	err = c.handler.Handle(logCtx, envelope)
	switch {
	case err == nil:
		c.logg.Info(logCtx, "analytics.event_recorded")
		return ack
	case errors.Is(err, router.ErrUnsupportedEventType):
		c.logg.Debug(logCtx, "analytics.event_ignored")
		return ack
	case errors.Is(err, router.ErrMalformedPayload):
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "analytics.payload_dropped")
		return ack
	case errors.Is(err, writer.ErrRowRejected):
		c.logg.Error(logCtx, "analytics.row_rejected", err)
		return ack
	}

	c.logg.Error(logCtx, "analytics.write_failed", err)
	if delErr := c.ledger.Release(logCtx, eventID.String()); delErr != nil {
		c.logg.Error(logCtx, "analytics.ledger_release_failed", delErr)
	}
	return redeliver
}

// decodeMessage rebuilds the outbox envelope from a published message. The
// publisher copies routing fields into attributes; ids inside the envelope
// win over attributes when both are present.
func decodeMessage(msg *gcppubsub.Message) (types.Envelope, uuid.UUID, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return types.Envelope{}, uuid.Nil, fmt.Errorf("decode payload envelope: %w", err)
	}
	attr := func(key string) string { return strings.TrimSpace(msg.Attributes[key]) }

	eventType, err := enums.ParseOutboxEventType(attr("event_type"))
	if err != nil {
		return types.Envelope{}, uuid.Nil, err
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return types.Envelope{}, uuid.Nil, err
	}
	aggregateID, err := uuid.Parse(attr("aggregate_id"))
	if err != nil {
		return types.Envelope{}, uuid.Nil, fmt.Errorf("aggregate_id: %w", err)
	}

	rawEventID := strings.TrimSpace(stored.EventID)
	if rawEventID == "" {
		rawEventID = attr("event_id")
	}
	eventID, err := uuid.Parse(rawEventID)
	if err != nil {
		return types.Envelope{}, uuid.Nil, fmt.Errorf("event_id %q: %w", rawEventID, err)
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			occurredAt = parsed
		}
	}

	return types.Envelope{
		EventID:       eventID.String(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID.String(),
		OccurredAt:    occurredAt.UTC(),
		Payload:       stored.Data,
	}, eventID, nil
}
