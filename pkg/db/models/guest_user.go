package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GuestUser tracks a guest checkout identity until it is converted into an account.
// Only the digest of the conversion token is stored.
type GuestUser struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name               string     `gorm:"column:name;not null"`
	Email              string     `gorm:"column:email;not null;uniqueIndex"`
	Phone              string     `gorm:"column:phone;not null"`
	ConvertTokenDigest *string    `gorm:"column:convert_token_digest;uniqueIndex"`
	TokenExpiry        *time.Time `gorm:"column:token_expiry"`
	AccountCreated     bool       `gorm:"column:account_created;not null;default:false"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (g *GuestUser) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
