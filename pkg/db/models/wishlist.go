package models

import (
	"time"

	"github.com/google/uuid"
)

// Wishlist groups a user's saved products. Only public wishlists are visible
// to the gift selection tiers.
type Wishlist struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:wishlists_user_id_idx"`
	Title     string    `gorm:"column:title;type:text;not null"`
	IsPublic  bool      `gorm:"column:is_public;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
