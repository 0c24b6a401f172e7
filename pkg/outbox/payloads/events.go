package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// OrderCreatedEvent describes one per-store order produced by a checkout.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"orderId"`
	CheckoutID    uuid.UUID           `json:"checkoutId"`
	StoreID       uuid.UUID           `json:"storeId"`
	UserID        string              `json:"userId"`
	IsGuest       bool                `json:"isGuest"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Discount      decimal.Decimal     `json:"discount"`
	ShippingFee   decimal.Decimal     `json:"shippingFee"`
	Total         decimal.Decimal     `json:"total"`
	ItemCount     int                 `json:"itemCount"`
	CouponCode    string              `json:"couponCode,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// OrderPaidEvent is emitted once hosted checkout confirms payment.
type OrderPaidEvent struct {
	OrderID   uuid.UUID       `json:"orderId"`
	StoreID   uuid.UUID       `json:"storeId"`
	UserID    string          `json:"userId"`
	Total     decimal.Decimal `json:"total"`
	SessionID string          `json:"sessionId,omitempty"`
	PaidAt    time.Time       `json:"paidAt"`
}

// OrderStatusChangedEvent records a seller fulfillment update.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"orderId"`
	StoreID    uuid.UUID         `json:"storeId"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
	TrackingID string            `json:"trackingId,omitempty"`
	ChangedAt  time.Time         `json:"changedAt"`
}

// ReturnRequestedEvent is emitted when a buyer opens a return or replacement.
type ReturnRequestedEvent struct {
	RequestID uuid.UUID               `json:"requestId"`
	OrderID   uuid.UUID               `json:"orderId"`
	StoreID   uuid.UUID               `json:"storeId"`
	UserID    string                  `json:"userId"`
	Type      enums.ReturnRequestType `json:"type"`
}

// GuestConvertedEvent is emitted when a guest identity becomes an account.
type GuestConvertedEvent struct {
	GuestUserID uuid.UUID `json:"guestUserId"`
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
}

// NotificationRequestedEvent asks the notification worker to send an email.
type NotificationRequestedEvent struct {
	Kind      enums.NotificationKind `json:"kind"`
	Recipient string                 `json:"recipient"`
	Name      string                 `json:"name,omitempty"`
	OrderID   *uuid.UUID             `json:"orderId,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Total     string                 `json:"total,omitempty"`
	Link      string                 `json:"link,omitempty"`
	Tracking  string                 `json:"tracking,omitempty"`
}
