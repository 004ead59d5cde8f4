package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is one catalog entry in the gifting marketplace.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title      string    `gorm:"column:title;type:text;not null"`
	Category   string    `gorm:"column:category;type:text;not null;index:products_category_idx"`
	PriceCents int       `gorm:"column:price_cents;not null"`
	ImageURL   string    `gorm:"column:image_url;type:text"`
	Vendor     string    `gorm:"column:vendor;type:text"`
	Popularity int       `gorm:"column:popularity;not null;default:0"`
	// no tag default so retiring a product persists false on insert too
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
