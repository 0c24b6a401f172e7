package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderEventRow mirrors the order_events BigQuery schema.
type OrderEventRow struct {
	EventID          string             `bigquery:"event_id"`
	EventType        string             `bigquery:"event_type"`
	OccurredAt       time.Time          `bigquery:"occurred_at"`
	OrderID          string             `bigquery:"order_id"`
	CheckoutID       *string            `bigquery:"checkout_id"`
	StoreID          *string            `bigquery:"store_id"`
	UserID           *string            `bigquery:"user_id"`
	IsGuest          *bool              `bigquery:"is_guest"`
	PaymentMethod    *string            `bigquery:"payment_method"`
	SubtotalCents    *int64             `bigquery:"subtotal_cents"`
	DiscountCents    *int64             `bigquery:"discount_cents"`
	ShippingFeeCents *int64             `bigquery:"shipping_fee_cents"`
	TotalCents       *int64             `bigquery:"total_cents"`
	ItemCount        *int64             `bigquery:"item_count"`
	CouponCode       *string            `bigquery:"coupon_code"`
	SessionID        *string            `bigquery:"session_id"`
	Payload          cbigquery.NullJSON `bigquery:"payload"`
}
