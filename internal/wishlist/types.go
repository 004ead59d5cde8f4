package wishlist

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/google/uuid"
)

// WishlistDTO is the wishlist shape returned to API consumers.
type WishlistDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

// WishlistItemsDTO pairs a wishlist with its saved products.
type WishlistItemsDTO struct {
	Wishlist WishlistDTO      `json:"wishlist"`
	Products []models.Product `json:"products"`
}

// CreateWishlistInput carries the fields a user supplies when creating a list.
type CreateWishlistInput struct {
	OwnerID  uuid.UUID
	Title    string
	IsPublic bool
}

func toWishlistDTO(list models.Wishlist) WishlistDTO {
	return WishlistDTO{
		ID:        list.ID,
		UserID:    list.UserID,
		Title:     list.Title,
		IsPublic:  list.IsPublic,
		CreatedAt: list.CreatedAt,
	}
}
