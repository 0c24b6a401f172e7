package router

import (
	"context"
	"fmt"

	"github.com/angelmondragon/marketplace-backend/internal/analytics/types"
	analyticswriter "github.com/angelmondragon/marketplace-backend/internal/analytics/writer"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

type orderCreatedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderCreatedHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderCreatedHandler{writer: writer, logg: logg}
}

func (h *orderCreatedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderCreatedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_created")
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":  envelope.EventType,
		"order_id":    event.OrderID,
		"store_id":    event.StoreID,
		"checkout_id": event.CheckoutID,
	})

	row, err := buildOrderCreatedRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build order event row", err)
		return err
	}

	if err := h.writer.Insert(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert order event row", err)
		return err
	}

	h.logg.Info(logCtx, "order_created handler inserted order event row")
	return nil
}

func buildOrderCreatedRow(envelope types.Envelope, event *payloads.OrderCreatedEvent) (types.OrderEventRow, error) {
	payloadJSON, err := analyticswriter.JSONColumn(event)
	if err != nil {
		return types.OrderEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	return types.OrderEventRow{
		EventID:          envelope.EventID,
		EventType:        string(envelope.EventType),
		OccurredAt:       envelope.OccurredAt,
		OrderID:          event.OrderID.String(),
		CheckoutID:       stringPtr(event.CheckoutID.String()),
		StoreID:          stringPtr(event.StoreID.String()),
		UserID:           stringPtr(event.UserID),
		IsGuest:          boolPtr(event.IsGuest),
		PaymentMethod:    stringPtr(string(event.PaymentMethod)),
		SubtotalCents:    centsPtr(event.Subtotal),
		DiscountCents:    centsPtr(event.Discount),
		ShippingFeeCents: centsPtr(event.ShippingFee),
		TotalCents:       centsPtr(event.Total),
		ItemCount:        int64Ptr(int64(event.ItemCount)),
		CouponCode:       stringPtr(event.CouponCode),
		Payload:          payloadJSON,
	}, nil
}
