package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// DefaultShippingSettingID keys the singleton shipping settings row.
const DefaultShippingSettingID = "default"

type ShippingSetting struct {
	ID                  string              `gorm:"column:id;type:text;primaryKey"`
	Enabled             bool                `gorm:"column:enabled;not null"`
	ShippingType        enums.ShippingType  `gorm:"column:shipping_type;type:text;not null"`
	FlatRate            decimal.Decimal     `gorm:"column:flat_rate;type:numeric(12,2);not null;default:0"`
	PerItemFee          decimal.Decimal     `gorm:"column:per_item_fee;type:numeric(12,2);not null;default:0"`
	MaxItemFee          decimal.NullDecimal `gorm:"column:max_item_fee;type:numeric(12,2)"`
	FreeShippingMin     decimal.Decimal     `gorm:"column:free_shipping_min;type:numeric(12,2);not null;default:0"`
	BaseWeight          decimal.Decimal     `gorm:"column:base_weight;type:numeric(12,2);not null;default:0"`
	BaseWeightFee       decimal.Decimal     `gorm:"column:base_weight_fee;type:numeric(12,2);not null;default:0"`
	AdditionalWeightFee decimal.Decimal     `gorm:"column:additional_weight_fee;type:numeric(12,2);not null;default:0"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
