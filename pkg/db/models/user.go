package models

import "time"

// GuestUserID is the reserved user row that owns every guest order and address.
const GuestUserID = "guest"

// User mirrors an identity-provider subject; ID is the provider uid.
type User struct {
	ID        string         `gorm:"column:id;type:text;primaryKey"`
	Name      string         `gorm:"column:name;not null"`
	Email     string         `gorm:"column:email;not null"`
	Image     string         `gorm:"column:image;not null;default:''"`
	Cart      map[string]int `gorm:"column:cart;type:jsonb;serializer:json"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
