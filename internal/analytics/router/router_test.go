package router

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/internal/analytics/types"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

func TestRouterUnsupportedEvent(t *testing.T) {
	router := newTestRouter(t, &fakeWriter{}, nil)
	env := types.Envelope{
		EventType: enums.EventReturnRequested,
		Payload:   []byte(`{"foo":"bar"}`),
	}
	err := router.Handle(context.Background(), env)
	if !errors.Is(err, ErrUnsupportedEventType) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}

func TestRouterRejectsEmptyPayload(t *testing.T) {
	router := newTestRouter(t, &fakeWriter{}, nil)
	err := router.Handle(context.Background(), types.Envelope{EventType: enums.EventOrderCreated})
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected malformed payload error, got %v", err)
	}
	err = router.Handle(context.Background(), types.Envelope{EventType: enums.EventOrderPaid, Payload: []byte(`{"orderId":7}`)})
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected malformed payload error for bad json, got %v", err)
	}
}

func TestOrderStatusChangedInsertsRow(t *testing.T) {
	writer := &fakeWriter{}
	router := newTestRouter(t, writer, nil)
	orderID := uuid.New()
	storeID := uuid.New()
	changedAt := time.Date(2026, 2, 3, 8, 15, 0, 0, time.UTC)

	data, _ := json.Marshal(payloads.OrderStatusChangedEvent{
		OrderID:    orderID,
		StoreID:    storeID,
		From:       enums.OrderStatusProcessing,
		To:         enums.OrderStatusShipped,
		TrackingID: "TRK-1",
		ChangedAt:  changedAt,
	})
	err := router.Handle(context.Background(), types.Envelope{
		EventID:    "evt-3",
		EventType:  enums.EventOrderStatusChanged,
		OccurredAt: changedAt.Add(time.Second),
		Payload:    data,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	row := writer.inserted[0]
	if row.OrderID != orderID.String() || *row.StoreID != storeID.String() {
		t.Fatalf("unexpected ids %+v", row)
	}
	if !row.OccurredAt.Equal(changedAt) {
		t.Fatalf("expected changed_at as occurred_at, got %v", row.OccurredAt)
	}
	if row.TotalCents != nil || row.SessionID != nil {
		t.Fatalf("status row should not carry money fields")
	}
	var stored payloads.OrderStatusChangedEvent
	if err := json.Unmarshal([]byte(row.Payload.JSONVal), &stored); err != nil {
		t.Fatalf("decode payload column: %v", err)
	}
	if stored.To != enums.OrderStatusShipped || stored.TrackingID != "TRK-1" {
		t.Fatalf("unexpected payload column %+v", stored)
	}
}

func TestRouterRoutesToOverride(t *testing.T) {
	handler := &stubHandler{}
	router := newTestRouter(t, &fakeWriter{}, map[enums.OutboxEventType]Handler{
		enums.EventOrderCreated: handler,
	})
	payload := payloads.OrderCreatedEvent{OrderID: uuidFromString(t, "00000000-0000-0000-0000-000000000002")}
	data, _ := json.Marshal(payload)
	env := types.Envelope{
		EventType: enums.EventOrderCreated,
		Payload:   data,
	}
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handler.called {
		t.Fatalf("handler not invoked")
	}
	decoded, ok := handler.payload.(*payloads.OrderCreatedEvent)
	if !ok || decoded.OrderID != payload.OrderID {
		t.Fatalf("unexpected payload %#v", handler.payload)
	}
}

func TestOrderCreatedInsertsRow(t *testing.T) {
	writer := &fakeWriter{}
	router := newTestRouter(t, writer, nil)
	orderID := uuid.New()
	storeID := uuid.New()
	checkoutID := uuid.New()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	data, _ := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:       orderID,
		CheckoutID:    checkoutID,
		StoreID:       storeID,
		UserID:        "guest",
		IsGuest:       true,
		PaymentMethod: enums.PaymentMethodCOD,
		Subtotal:      decimal.RequireFromString("250"),
		Discount:      decimal.RequireFromString("25"),
		ShippingFee:   decimal.RequireFromString("20.005"),
		Total:         decimal.RequireFromString("245.01"),
		ItemCount:     3,
		CouponCode:    "TEN",
		CreatedAt:     now,
	})
	err := router.Handle(context.Background(), types.Envelope{
		EventID:    "evt-1",
		EventType:  enums.EventOrderCreated,
		OccurredAt: now,
		Payload:    data,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(writer.inserted) != 1 {
		t.Fatalf("expected one row, got %d", len(writer.inserted))
	}
	row := writer.inserted[0]
	if row.EventID != "evt-1" || row.EventType != "order_created" {
		t.Fatalf("unexpected identity %s %s", row.EventID, row.EventType)
	}
	if row.OrderID != orderID.String() || *row.StoreID != storeID.String() || *row.CheckoutID != checkoutID.String() {
		t.Fatalf("unexpected ids %+v", row)
	}
	if !*row.IsGuest || *row.PaymentMethod != "COD" || *row.CouponCode != "TEN" {
		t.Fatalf("unexpected buyer fields %+v", row)
	}
	if *row.SubtotalCents != 25000 || *row.DiscountCents != 2500 || *row.ShippingFeeCents != 2001 || *row.TotalCents != 24501 {
		t.Fatalf("unexpected cents %d %d %d %d", *row.SubtotalCents, *row.DiscountCents, *row.ShippingFeeCents, *row.TotalCents)
	}
	if *row.ItemCount != 3 {
		t.Fatalf("unexpected item count %d", *row.ItemCount)
	}
	if row.SessionID != nil {
		t.Fatalf("session id should be empty for order_created")
	}
	if !row.Payload.Valid {
		t.Fatal("expected payload json")
	}
}

func TestOrderPaidInsertsRow(t *testing.T) {
	writer := &fakeWriter{}
	router := newTestRouter(t, writer, nil)
	orderID := uuid.New()
	paidAt := time.Date(2026, 2, 1, 11, 30, 0, 0, time.UTC)

	data, _ := json.Marshal(payloads.OrderPaidEvent{
		OrderID:   orderID,
		StoreID:   uuid.New(),
		UserID:    "user-1",
		Total:     decimal.RequireFromString("99.99"),
		SessionID: "cs_test_1",
		PaidAt:    paidAt,
	})
	err := router.Handle(context.Background(), types.Envelope{
		EventID:    "evt-2",
		EventType:  enums.EventOrderPaid,
		OccurredAt: paidAt.Add(time.Minute),
		Payload:    data,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	row := writer.inserted[0]
	if row.OrderID != orderID.String() || *row.TotalCents != 9999 || *row.SessionID != "cs_test_1" {
		t.Fatalf("unexpected row %+v", row)
	}
	if !row.OccurredAt.Equal(paidAt) {
		t.Fatalf("expected paid_at as occurred_at, got %v", row.OccurredAt)
	}
	if row.IsGuest != nil || row.CheckoutID != nil {
		t.Fatalf("order_paid row should not carry checkout fields")
	}
}

func TestHandlerPropagatesWriterError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("bigquery down")}
	router := newTestRouter(t, writer, nil)
	data, _ := json.Marshal(payloads.OrderPaidEvent{OrderID: uuid.New()})
	err := router.Handle(context.Background(), types.Envelope{EventType: enums.EventOrderPaid, Payload: data})
	if err == nil {
		t.Fatal("expected writer error")
	}
}

func newTestRouter(t *testing.T, writer Writer, overrides map[enums.OutboxEventType]Handler) *Router {
	t.Helper()
	router, err := NewRouter(writer, logger.New(logger.Options{ServiceName: "router-test"}), overrides)
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}
	return router
}

type stubHandler struct {
	called  bool
	payload any
}

func (s *stubHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	s.called = true
	s.payload = payload
	return nil
}

func uuidFromString(t *testing.T, value string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(value)
	if err != nil {
		t.Fatalf("parse uuid: %v", err)
	}
	return id
}
