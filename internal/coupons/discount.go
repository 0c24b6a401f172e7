package coupons

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// DiscountAmount returns how much the coupon takes off a single store's subtotal.
// Fixed discounts are capped at the subtotal. The result is not rounded.
func DiscountAmount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if coupon == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		return subtotal.Mul(coupon.Discount).Div(hundred)
	case enums.DiscountTypeFixed:
		return decimal.Min(coupon.Discount, subtotal)
	default:
		return decimal.Zero
	}
}

// ApplyDiscount returns subtotal minus the coupon discount, never below zero.
func ApplyDiscount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	discounted := subtotal.Sub(DiscountAmount(coupon, subtotal))
	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted
}
