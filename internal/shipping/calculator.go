// Package shipping computes the single shipping fee charged per checkout.
package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

var (
	defaultFlatRate            = decimal.NewFromInt(5)
	defaultPerItemFee          = decimal.NewFromInt(2)
	defaultBaseWeight          = decimal.NewFromInt(1)
	defaultBaseWeightFee       = decimal.NewFromInt(5)
	defaultAdditionalWeightFee = decimal.NewFromInt(2)
	// No per-product weight is stored yet, so every unit counts as half a weight unit.
	assumedItemWeight = decimal.RequireFromString("0.5")
)

// Input is the checkout-wide data the fee depends on.
type Input struct {
	GrandSubtotal decimal.Decimal
	TotalQuantity int
	ItemCount     int
	Member        bool
	Setting       models.ShippingSetting
}

// Calculate returns the non-negative shipping fee for the whole checkout.
func Calculate(in Input) decimal.Decimal {
	setting := in.Setting
	switch {
	case in.Member:
		return decimal.Zero
	case !setting.Enabled:
		return decimal.Zero
	case in.GrandSubtotal.GreaterThanOrEqual(setting.FreeShippingMin):
		return decimal.Zero
	}

	quantity := decimal.NewFromInt(int64(in.TotalQuantity))

	switch setting.ShippingType {
	case enums.ShippingTypeFlatRate:
		return orDefault(setting.FlatRate, defaultFlatRate)
	case enums.ShippingTypePerItem:
		fee := quantity.Mul(orDefault(setting.PerItemFee, defaultPerItemFee))
		if setting.MaxItemFee.Valid && fee.GreaterThan(setting.MaxItemFee.Decimal) {
			return setting.MaxItemFee.Decimal
		}
		return fee
	case enums.ShippingTypeWeightBased:
		weight := quantity.Mul(assumedItemWeight)
		baseWeight := orDefault(setting.BaseWeight, defaultBaseWeight)
		baseFee := orDefault(setting.BaseWeightFee, defaultBaseWeightFee)
		if weight.LessThanOrEqual(baseWeight) {
			return baseFee
		}
		extra := weight.Sub(baseWeight).Ceil()
		return baseFee.Add(extra.Mul(orDefault(setting.AdditionalWeightFee, defaultAdditionalWeightFee)))
	case enums.ShippingTypeFree:
		return decimal.Zero
	default:
		return defaultFlatRate
	}
}

func orDefault(value, fallback decimal.Decimal) decimal.Decimal {
	if value.IsPositive() {
		return value
	}
	return fallback
}
