package wishlist

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

func setupWishlistTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{
		`DROP TABLE IF EXISTS wishlist_items`,
		`DROP TABLE IF EXISTS wishlists`,
		`DROP TABLE IF EXISTS products`,
		`CREATE TABLE wishlists (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  is_public INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE wishlist_items (
  id TEXT PRIMARY KEY,
  wishlist_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (wishlist_id, product_id)
);`,
		`CREATE TABLE products (
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
);`,
	}
	for _, stmt := range schemas {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedWishlist(t *testing.T, db *gorm.DB, ownerID uuid.UUID, title string, public bool, createdAt time.Time) models.Wishlist {
	t.Helper()
	list := models.Wishlist{
		ID:        uuid.New(),
		UserID:    ownerID,
		Title:     title,
		IsPublic:  public,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, db.Create(&list).Error)
	return list
}

func seedCatalogProduct(t *testing.T, db *gorm.DB, title string, priceCents int, active bool) models.Product {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		Title:      title,
		Category:   "home",
		PriceCents: priceCents,
		IsActive:   active,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestRepositoryListPublicByOwnerOrdersNewestFirst(t *testing.T) {
	db := setupWishlistTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	older := seedWishlist(t, db, owner, "Older Public", true, base)
	seedWishlist(t, db, owner, "Private", false, base.Add(time.Hour))
	newer := seedWishlist(t, db, owner, "Newer Public", true, base.Add(2*time.Hour))
	seedWishlist(t, db, uuid.New(), "Other Owner", true, base.Add(3*time.Hour))

	lists, err := repo.ListPublicByOwner(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, newer.ID, lists[0].ID)
	assert.Equal(t, older.ID, lists[1].ID)

	capped, err := repo.ListPublicByOwner(ctx, owner, 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, newer.ID, capped[0].ID)
}

func TestRepositoryAddItemIgnoresDuplicates(t *testing.T) {
	db := setupWishlistTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	list := seedWishlist(t, db, uuid.New(), "Gifts", true, time.Now().UTC())
	product := seedCatalogProduct(t, db, "Candle", 2500, true)

	require.NoError(t, repo.AddItem(ctx, list.ID, product.ID))
	require.NoError(t, repo.AddItem(ctx, list.ID, product.ID))

	var count int64
	require.NoError(t, db.Model(&models.WishlistItem{}).Where("wishlist_id = ?", list.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.RemoveItem(ctx, list.ID, product.ID))
	require.NoError(t, db.Model(&models.WishlistItem{}).Where("wishlist_id = ?", list.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRepositoryListItemProductsSkipsInactive(t *testing.T) {
	db := setupWishlistTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	list := seedWishlist(t, db, uuid.New(), "Gifts", true, time.Now().UTC())
	active := seedCatalogProduct(t, db, "Candle", 2500, true)
	inactive := seedCatalogProduct(t, db, "Retired", 1200, false)

	require.NoError(t, repo.AddItem(ctx, list.ID, active.ID))
	require.NoError(t, repo.AddItem(ctx, list.ID, inactive.ID))

	products, err := repo.ListItemProducts(ctx, list.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, active.ID, products[0].ID)
}
