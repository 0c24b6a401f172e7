package coupons

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

func TestApplyDiscount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		coupon   *models.Coupon
		subtotal string
		want     string
	}{
		{"no coupon", nil, "250", "250"},
		{"ten percent", &models.Coupon{DiscountType: enums.DiscountTypePercentage, Discount: decimal.NewFromInt(10)}, "250", "225"},
		{"fixed under subtotal", &models.Coupon{DiscountType: enums.DiscountTypeFixed, Discount: decimal.NewFromInt(50)}, "120", "70"},
		{"fixed capped at subtotal", &models.Coupon{DiscountType: enums.DiscountTypeFixed, Discount: decimal.NewFromInt(50)}, "30", "0"},
		{"full percentage", &models.Coupon{DiscountType: enums.DiscountTypePercentage, Discount: decimal.NewFromInt(100)}, "99.99", "0"},
		{"unknown type", &models.Coupon{DiscountType: "bogus", Discount: decimal.NewFromInt(50)}, "80", "80"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ApplyDiscount(tc.coupon, decimal.RequireFromString(tc.subtotal))
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}

func TestDiscountAmountIsNotRounded(t *testing.T) {
	t.Parallel()

	coupon := &models.Coupon{DiscountType: enums.DiscountTypePercentage, Discount: decimal.NewFromInt(15)}
	got := DiscountAmount(coupon, decimal.RequireFromString("33.33"))
	if !got.Equal(decimal.RequireFromString("4.9995")) {
		t.Fatalf("expected 4.9995 got %s", got)
	}
}
