package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  category TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  image_url TEXT,
  vendor TEXT,
  popularity INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS products`).Error)
	require.NoError(t, db.Exec(products).Error)

	return db
}

func seedProduct(t *testing.T, db *gorm.DB, title, category string, priceCents, popularity int, active bool, createdAt time.Time) models.Product {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		Title:      title,
		Category:   category,
		PriceCents: priceCents,
		Popularity: popularity,
		IsActive:   active,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestRepositoryListFiltersInactiveAndPaginates(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedProduct(t, db, "Candle", "home", 2500, 5, true, base)
	seedProduct(t, db, "Mug", "home", 1800, 9, true, base.Add(time.Hour))
	seedProduct(t, db, "Retired", "home", 1200, 50, false, base.Add(2*time.Hour))
	seedProduct(t, db, "Novel", "books", 1500, 3, true, base.Add(3*time.Hour))

	page, err := repo.List(ctx, "", "", 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Novel", page.Items[0].Title)
	assert.Equal(t, "Mug", page.Items[1].Title)
	assert.NotEmpty(t, page.NextCursor)

	next, err := repo.List(ctx, "", page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, "Candle", next.Items[0].Title)
	assert.Empty(t, next.NextCursor)

	homeOnly, err := repo.List(ctx, "home", "", 10)
	require.NoError(t, err)
	require.Len(t, homeOnly.Items, 2)
	for _, item := range homeOnly.Items {
		assert.Equal(t, "home", item.Category)
		assert.True(t, item.IsActive)
	}
}

func TestRepositoryPickTopInBand(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedProduct(t, db, "Cheap", "home", 500, 90, true, base)
	seedProduct(t, db, "Popular", "home", 2000, 80, true, base)
	seedProduct(t, db, "Pricey", "home", 9000, 99, true, base)
	seedProduct(t, db, "Inactive", "home", 2000, 100, false, base)
	tied := seedProduct(t, db, "Tied Higher", "home", 3000, 80, true, base)

	picked, err := repo.PickTopInBand(ctx, 1000, 5000, nil)
	require.NoError(t, err)
	assert.Equal(t, tied.ID, picked.ID, "popularity tie should break toward the higher price")

	_, err = repo.PickTopInBand(ctx, 1000, 5000, []string{"books"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	byCategory, err := repo.PickTopInBand(ctx, 1000, 5000, []string{"home", "books"})
	require.NoError(t, err)
	assert.Equal(t, tied.ID, byCategory.ID)
}

func TestRepositoryFindByID(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := seedProduct(t, db, "Candle", "home", 2500, 5, true, time.Now().UTC())

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, found.Title)

	_, err = repo.FindByID(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
