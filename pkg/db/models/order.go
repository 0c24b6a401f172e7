package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// Order is the per-store slice of a checkout. Guest orders belong to GuestUserID
// and carry the buyer's contact details in the Guest* columns.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	StoreID       uuid.UUID           `gorm:"column:store_id;type:uuid;not null;index"`
	UserID        string              `gorm:"column:user_id;type:text;not null;index"`
	AddressID     uuid.UUID           `gorm:"column:address_id;type:uuid;not null"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'ORDER_PLACED'"`
	IsPaid        bool                `gorm:"column:is_paid;not null;default:false"`
	IsCouponUsed  bool                `gorm:"column:is_coupon_used;not null;default:false"`
	Coupon        *CouponSnapshot     `gorm:"column:coupon;type:jsonb;serializer:json"`
	IsGuest       bool                `gorm:"column:is_guest;not null;default:false"`
	GuestName     *string             `gorm:"column:guest_name"`
	GuestEmail    *string             `gorm:"column:guest_email;index"`
	GuestPhone    *string             `gorm:"column:guest_phone"`
	TrackingID    *string             `gorm:"column:tracking_id"`
	TrackingURL   *string             `gorm:"column:tracking_url"`
	Courier       *string             `gorm:"column:courier"`
	Items         []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Address       *Address            `gorm:"foreignKey:AddressID"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots the unit price a product sold at.
type OrderItem struct {
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;primaryKey"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
}

// LineTotal returns price x quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
