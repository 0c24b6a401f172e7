package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// Store is a seller storefront; UserID is the owning seller.
type Store struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID    string            `gorm:"column:user_id;type:text;not null;uniqueIndex"`
	Name      string            `gorm:"column:name;not null"`
	Username  string            `gorm:"column:username;not null;uniqueIndex"`
	Email     string            `gorm:"column:email;not null"`
	Status    enums.StoreStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	IsActive  bool              `gorm:"column:is_active;not null;default:false"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Store) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
