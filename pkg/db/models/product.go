package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the authoritative source of price and return policy at checkout.
type Product struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StoreID          uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	Name             string          `gorm:"column:name;not null"`
	Price            decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Images           pq.StringArray  `gorm:"column:images;type:text[]"`
	InStock          bool            `gorm:"column:in_stock;not null"`
	AllowReturn      bool            `gorm:"column:allow_return;not null"`
	AllowReplacement bool            `gorm:"column:allow_replacement;not null"`
	Store            *Store          `gorm:"foreignKey:StoreID"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
