package wishlist

import (
	"context"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new wishlist for the owner.
func (r *Repository) Create(ctx context.Context, list *models.Wishlist) (*models.Wishlist, error) {
	if err := r.db.WithContext(ctx).Create(list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// FindByID loads a single wishlist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	var list models.Wishlist
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&list).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

// ListByOwner returns every wishlist a user owns, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Wishlist, error) {
	var lists []models.Wishlist
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&lists).
		Error
	if err != nil {
		return nil, err
	}
	return lists, nil
}

// ListPublicByOwner returns the owner's public wishlists, newest first,
// capped at limit. This is the scan order the gift selector depends on.
func (r *Repository) ListPublicByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Wishlist, error) {
	var lists []models.Wishlist
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_public = ?", ownerID, true).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&lists).
		Error
	if err != nil {
		return nil, err
	}
	return lists, nil
}

// AddItem inserts a wishlist entry and ignores duplicates.
func (r *Repository) AddItem(ctx context.Context, wishlistID, productID uuid.UUID) error {
	if wishlistID == uuid.Nil || productID == uuid.Nil {
		return gorm.ErrInvalidValue
	}

	return r.db.WithContext(ctx).
		Exec(`INSERT INTO wishlist_items (id, wishlist_id, product_id) VALUES (?, ?, ?) ON CONFLICT (wishlist_id, product_id) DO NOTHING`, uuid.New(), wishlistID, productID).
		Error
}

// RemoveItem deletes the wishlist entry if it exists.
func (r *Repository) RemoveItem(ctx context.Context, wishlistID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("wishlist_id = ? AND product_id = ?", wishlistID, productID).
		Delete(&models.WishlistItem{}).
		Error
}

// ListItemProducts returns the active products saved on a wishlist, newest
// entry first.
func (r *Repository) ListItemProducts(ctx context.Context, wishlistID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Table("wishlist_items wi").
		Select("p.*").
		Joins("JOIN products p ON p.id = wi.product_id").
		Where("wi.wishlist_id = ? AND p.is_active = ?", wishlistID, true).
		Order("wi.created_at DESC, wi.id DESC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
