package catalog

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/google/uuid"
)

// ProductDTO is the catalog product shape returned to API consumers.
type ProductDTO struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	PriceCents int       `json:"price_cents"`
	ImageURL   string    `json:"image_url,omitempty"`
	Vendor     string    `json:"vendor,omitempty"`
	Popularity int       `json:"popularity"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProductPageDTO carries a page of catalog products with a continuation
// cursor when more rows exist.
type ProductPageDTO struct {
	Items      []models.Product `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func toProductDTO(product models.Product) ProductDTO {
	return ProductDTO{
		ID:         product.ID,
		Title:      product.Title,
		Category:   product.Category,
		PriceCents: product.PriceCents,
		ImageURL:   product.ImageURL,
		Vendor:     product.Vendor,
		Popularity: product.Popularity,
		IsActive:   product.IsActive,
		CreatedAt:  product.CreatedAt,
	}
}
