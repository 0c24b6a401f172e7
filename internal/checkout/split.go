package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/internal/coupons"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

// PricedItem is a requested line resolved to the product's current price.
type PricedItem struct {
	Product  models.Product
	Quantity int
}

func (p PricedItem) LineTotal() decimal.Decimal {
	return p.Product.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// StoreGroup holds the items one store will fulfil.
type StoreGroup struct {
	StoreID uuid.UUID
	Items   []PricedItem
}

func (g StoreGroup) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range g.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// SplitByStore partitions items by store. Groups appear in the order their
// store is first seen and items keep their input order.
func SplitByStore(items []PricedItem) []StoreGroup {
	index := map[uuid.UUID]int{}
	groups := []StoreGroup{}
	for _, item := range items {
		pos, ok := index[item.Product.StoreID]
		if !ok {
			pos = len(groups)
			index[item.Product.StoreID] = pos
			groups = append(groups, StoreGroup{StoreID: item.Product.StoreID})
		}
		groups[pos].Items = append(groups[pos].Items, item)
	}
	return groups
}

// GroupTotal is the money breakdown of one per-store order.
type GroupTotal struct {
	Group       StoreGroup
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
}

// BuildOrderTotals discounts every group independently and charges the
// checkout's shipping fee on the first group only. Each total is rounded to
// two decimals once; fullAmount is the sum of the rounded totals.
func BuildOrderTotals(groups []StoreGroup, coupon *models.Coupon, shippingFee decimal.Decimal) ([]GroupTotal, decimal.Decimal) {
	totals := make([]GroupTotal, 0, len(groups))
	fullAmount := decimal.Zero
	for i, group := range groups {
		subtotal := group.Subtotal()
		discount := coupons.DiscountAmount(coupon, subtotal)
		shipping := decimal.Zero
		if i == 0 {
			shipping = shippingFee
		}
		total := subtotal.Sub(discount).Add(shipping).Round(2)
		totals = append(totals, GroupTotal{
			Group:       group,
			Subtotal:    subtotal,
			Discount:    discount,
			ShippingFee: shipping,
			Total:       total,
		})
		fullAmount = fullAmount.Add(total)
	}
	return totals, fullAmount
}
