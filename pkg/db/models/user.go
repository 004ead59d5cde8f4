package models

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
)

// User represents the canonical identity entity.
type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email           string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash    string         `gorm:"column:password_hash;not null"`
	FirstName       string         `gorm:"column:first_name;not null"`
	LastName        string         `gorm:"column:last_name;not null"`
	Birthday        *time.Time     `gorm:"column:birthday;type:date"`
	ShippingAddress *types.Address `gorm:"column:shipping_address;type:jsonb"`
	IsActive        bool           `gorm:"column:is_active;not null"`
	LastLoginAt     *time.Time     `gorm:"column:last_login_at"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
