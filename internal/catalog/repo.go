package catalog

import (
	"context"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates catalog persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a single product regardless of active flag.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns a paginated page of active products, optionally narrowed to a
// category, ordered newest-first for browse surfaces.
func (r *Repository) List(ctx context.Context, category string, cursor string, limit int) (ProductPageDTO, error) {
	normalizedLimit := pagination.Clamp(limit)
	limitWithBuffer := pagination.FetchSize(limit)
	decodedCursor, err := pagination.Parse(cursor)
	if err != nil {
		return ProductPageDTO{}, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if decodedCursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID,
		)
	}

	var rows []models.Product
	err = query.
		Order("created_at DESC, id DESC").
		Limit(limitWithBuffer).
		Find(&rows).
		Error
	if err != nil {
		return ProductPageDTO{}, err
	}

	page := ProductPageDTO{Items: rows}
	if len(rows) > normalizedLimit {
		page.Items = rows[:normalizedLimit]
		last := page.Items[len(page.Items)-1]
		page.NextCursor = pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		}.Encode()
	}
	return page, nil
}

// PickTopInBand returns the most popular active product whose price falls
// inside [minCents, maxCents], optionally constrained to the given
// categories. Popularity ties break toward the higher price so the gift
// spends as much of the budget as the catalog allows.
func (r *Repository) PickTopInBand(ctx context.Context, minCents, maxCents int, categories []string) (*models.Product, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true).
		Where("price_cents >= ? AND price_cents <= ?", minCents, maxCents)
	if len(categories) > 0 {
		query = query.Where("category IN ?", categories)
	}

	var product models.Product
	err := query.
		Order("popularity DESC, price_cents DESC, id ASC").
		First(&product).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}
