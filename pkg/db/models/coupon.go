package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// Coupon is keyed by its uppercase code. StoreID is nil for marketplace-wide coupons.
type Coupon struct {
	Code         string             `gorm:"column:code;type:text;primaryKey"`
	Description  string             `gorm:"column:description;not null;default:''"`
	Discount     decimal.Decimal    `gorm:"column:discount;type:numeric(12,2);not null"`
	DiscountType enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	ForNewUser   bool               `gorm:"column:for_new_user;not null;default:false"`
	ForMember    bool               `gorm:"column:for_member;not null;default:false"`
	IsPublic     bool               `gorm:"column:is_public;not null;default:false"`
	UsageLimit   *int               `gorm:"column:usage_limit"`
	UsedCount    int                `gorm:"column:used_count;not null;default:0"`
	StoreID      *uuid.UUID         `gorm:"column:store_id;type:uuid;index"`
	ExpiresAt    time.Time          `gorm:"column:expires_at;not null"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// CouponSnapshot is the immutable copy of a coupon stored on each order it discounted.
type CouponSnapshot struct {
	Code         string             `json:"code"`
	Description  string             `json:"description,omitempty"`
	Discount     decimal.Decimal    `json:"discount"`
	DiscountType enums.DiscountType `json:"discountType"`
	ForNewUser   bool               `json:"forNewUser"`
	ForMember    bool               `json:"forMember"`
	ExpiresAt    time.Time          `json:"expiresAt"`
}

func (c Coupon) Snapshot() *CouponSnapshot {
	return &CouponSnapshot{
		Code:         c.Code,
		Description:  c.Description,
		Discount:     c.Discount,
		DiscountType: c.DiscountType,
		ForNewUser:   c.ForNewUser,
		ForMember:    c.ForMember,
		ExpiresAt:    c.ExpiresAt,
	}
}
