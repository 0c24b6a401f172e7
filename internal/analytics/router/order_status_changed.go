package router

import (
	"context"
	"fmt"

	"github.com/angelmondragon/marketplace-backend/internal/analytics/types"
	analyticswriter "github.com/angelmondragon/marketplace-backend/internal/analytics/writer"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

type orderStatusChangedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderStatusChangedHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderStatusChangedHandler{writer: writer, logg: logg}
}

// Handle records a seller status transition. The from/to pair lives in the
// payload column.
func (h *orderStatusChangedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderStatusChangedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_status_changed")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":  envelope.EventType,
		"order_id":    event.OrderID,
		"from_status": event.From,
		"to_status":   event.To,
	})

	payloadJSON, err := analyticswriter.JSONColumn(event)
	if err != nil {
		return fmt.Errorf("encode payload json: %w", err)
	}

	occurredAt := envelope.OccurredAt
	if !event.ChangedAt.IsZero() {
		occurredAt = event.ChangedAt.UTC()
	}

	row := types.OrderEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: occurredAt,
		OrderID:    event.OrderID.String(),
		StoreID:    stringPtr(event.StoreID.String()),
		Payload:    payloadJSON,
	}
	if err := h.writer.Insert(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert order status row", err)
		return err
	}
	h.logg.Info(logCtx, "order_status_changed handler inserted order event row")
	return nil
}
