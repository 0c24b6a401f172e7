package router

import (
	"context"
	"fmt"

	"github.com/angelmondragon/marketplace-backend/internal/analytics/types"
	analyticswriter "github.com/angelmondragon/marketplace-backend/internal/analytics/writer"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

type orderPaidHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderPaidHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderPaidHandler{writer: writer, logg: logg}
}

func (h *orderPaidHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderPaidEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_paid")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"order_id":   event.OrderID,
		"session_id": event.SessionID,
	})

	payloadJSON, err := analyticswriter.JSONColumn(event)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode order_paid payload", err)
		return fmt.Errorf("encode payload json: %w", err)
	}

	occurredAt := envelope.OccurredAt
	if !event.PaidAt.IsZero() {
		occurredAt = event.PaidAt.UTC()
	}

	row := types.OrderEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: occurredAt,
		OrderID:    event.OrderID.String(),
		StoreID:    stringPtr(event.StoreID.String()),
		UserID:     stringPtr(event.UserID),
		TotalCents: centsPtr(event.Total),
		SessionID:  stringPtr(event.SessionID),
		Payload:    payloadJSON,
	}

	if err := h.writer.Insert(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert order event row", err)
		return err
	}

	h.logg.Info(logCtx, "order_paid handler inserted order event row")
	return nil
}
