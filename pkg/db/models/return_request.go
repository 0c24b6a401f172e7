package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// ReturnRequest is unique per order.
type ReturnRequest struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	UserID         string                    `gorm:"column:user_id;type:text;not null;index"`
	StoreID        uuid.UUID                 `gorm:"column:store_id;type:uuid;not null;index"`
	Type           enums.ReturnRequestType   `gorm:"column:type;type:text;not null"`
	Reason         string                    `gorm:"column:reason;not null"`
	Description    string                    `gorm:"column:description;not null;default:''"`
	Images         pq.StringArray            `gorm:"column:images;type:text[]"`
	Videos         pq.StringArray            `gorm:"column:videos;type:text[]"`
	Status         enums.ReturnRequestStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	FastProcess    bool                      `gorm:"column:fast_process;not null;default:false"`
	ProductRating  *int                      `gorm:"column:product_rating"`
	DeliveryRating *int                      `gorm:"column:delivery_rating"`
	ReviewText     *string                   `gorm:"column:review_text"`
	Store          *Store                    `gorm:"foreignKey:StoreID"`
	User           *User                     `gorm:"foreignKey:UserID"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ReturnRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
