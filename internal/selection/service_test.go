package selection

import (
	"context"
	"testing"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type stubWishlistSource struct {
	lists    []models.Wishlist
	products map[uuid.UUID][]models.Product
	scanned  []int
	listErr  error
	itemsErr error
}

func (s *stubWishlistSource) ListPublicByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Wishlist, error) {
	s.scanned = append(s.scanned, limit)
	if s.listErr != nil {
		return nil, s.listErr
	}
	if len(s.lists) > limit {
		return s.lists[:limit], nil
	}
	return s.lists, nil
}

func (s *stubWishlistSource) ListItemProducts(ctx context.Context, wishlistID uuid.UUID) ([]models.Product, error) {
	if s.itemsErr != nil {
		return nil, s.itemsErr
	}
	return s.products[wishlistID], nil
}

type stubCatalogSource struct {
	product *models.Product
	calls   int
}

func (s *stubCatalogSource) PickTopInBand(ctx context.Context, minCents, maxCents int, categories []string) (*models.Product, error) {
	s.calls++
	if s.product == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if s.product.PriceCents < minCents || s.product.PriceCents > maxCents {
		return nil, gorm.ErrRecordNotFound
	}
	return s.product, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel})
}

func product(title string, priceCents int, category string) models.Product {
	return models.Product{
		ID:         uuid.New(),
		Title:      title,
		Category:   category,
		PriceCents: priceCents,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
}

func newSelector(t *testing.T, wishlists *stubWishlistSource, catalog *stubCatalogSource) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Wishlists: wishlists,
		Catalog:   catalog,
		Gifting:   config.GiftingConfig{MinGiftPriceCents: 1000, WishlistScanLimit: 10},
		Logger:    testLogger(t),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSelectGiftPrefersWishlistOverCatalog(t *testing.T) {
	listID := uuid.New()
	wishlistPick := product("Wishlist Candle", 2000, "home")
	wishlists := &stubWishlistSource{
		lists:    []models.Wishlist{{ID: listID, IsPublic: true}},
		products: map[uuid.UUID][]models.Product{listID: {wishlistPick}},
	}
	catalogPick := product("Catalog Mug", 4900, "home")
	catalog := &stubCatalogSource{product: &catalogPick}

	svc := newSelector(t, wishlists, catalog)

	selected, err := svc.SelectGift(context.Background(), Input{
		RecipientID: uuid.New(),
		BudgetCents: 5000,
	})
	if err != nil {
		t.Fatalf("select gift: %v", err)
	}
	if len(selected) != 1 {
		t.Fatalf("expected exactly one selection, got %d", len(selected))
	}
	if selected[0].ProductID != wishlistPick.ID {
		t.Fatalf("expected wishlist product %s, got %s", wishlistPick.ID, selected[0].ProductID)
	}
	if selected[0].Source != enums.GiftSourceWishlist {
		t.Fatalf("expected wishlist source, got %s", selected[0].Source)
	}
	if catalog.calls != 0 {
		t.Fatal("catalog tier must not run when the wishlist tier matches")
	}
}

func TestSelectGiftPicksNewestAffordableWishlistItem(t *testing.T) {
	newerID := uuid.New()
	olderID := uuid.New()
	newest := product("Newest", 1200, "home")
	pricier := product("Pricier", 4500, "home")
	overBudget := product("Over", 6000, "home")
	belowFloor := product("Floor", 500, "home")
	// wishlists and their items arrive newest-first; the over-budget item
	// is the most recent add, so the next one down wins
	wishlists := &stubWishlistSource{
		lists: []models.Wishlist{{ID: newerID, IsPublic: true}, {ID: olderID, IsPublic: true}},
		products: map[uuid.UUID][]models.Product{
			newerID: {overBudget, newest},
			olderID: {pricier, belowFloor},
		},
	}
	svc := newSelector(t, wishlists, &stubCatalogSource{})

	selected, err := svc.SelectGift(context.Background(), Input{
		RecipientID: uuid.New(),
		BudgetCents: 5000,
	})
	if err != nil {
		t.Fatalf("select gift: %v", err)
	}
	if selected[0].ProductID != newest.ID {
		t.Fatalf("expected newest affordable item %s, got %s", newest.ID, selected[0].ProductID)
	}
	if selected[0].PriceCents != 1200 {
		t.Fatalf("expected captured price 1200, got %d", selected[0].PriceCents)
	}
}

func TestSelectGiftFallsThroughWhenWishlistScanErrors(t *testing.T) {
	catalogPick := product("Popular Mug", 3000, "home")
	catalog := &stubCatalogSource{product: &catalogPick}
	wishlists := &stubWishlistSource{listErr: gorm.ErrInvalidDB}
	svc := newSelector(t, wishlists, catalog)

	selected, err := svc.SelectGift(context.Background(), Input{
		RecipientID: uuid.New(),
		BudgetCents: 5000,
	})
	if err != nil {
		t.Fatalf("wishlist store error must fall through, got %v", err)
	}
	if selected[0].ProductID != catalogPick.ID {
		t.Fatalf("expected catalog product, got %s", selected[0].ProductID)
	}
	if catalog.calls != 1 {
		t.Fatalf("expected one catalog call, got %d", catalog.calls)
	}
}

func TestSelectGiftFallsThroughWhenWishlistItemsError(t *testing.T) {
	listID := uuid.New()
	catalogPick := product("Popular Mug", 3000, "home")
	catalog := &stubCatalogSource{product: &catalogPick}
	wishlists := &stubWishlistSource{
		lists:    []models.Wishlist{{ID: listID, IsPublic: true}},
		itemsErr: gorm.ErrInvalidDB,
	}
	svc := newSelector(t, wishlists, catalog)

	selected, err := svc.SelectGift(context.Background(), Input{
		RecipientID: uuid.New(),
		BudgetCents: 5000,
	})
	if err != nil {
		t.Fatalf("wishlist item error must fall through, got %v", err)
	}
	if selected[0].Source != enums.GiftSourcePopular {
		t.Fatalf("expected popular source, got %s", selected[0].Source)
	}
}

func TestSelectGiftFallsBackToCatalog(t *testing.T) {
	catalogPick := product("Popular Mug", 3000, "home")
	catalog := &stubCatalogSource{product: &catalogPick}
	svc := newSelector(t, &stubWishlistSource{}, catalog)

	selected, err := svc.SelectGift(context.Background(), Input{
		RecipientID: uuid.New(),
		BudgetCents: 5000,
	})
	if err != nil {
		t.Fatalf("select gift: %v", err)
	}
	if selected[0].Source != enums.GiftSourcePopular {
		t.Fatalf("expected popular source, got %s", selected[0].Source)
	}
	if selected[0].ProductID != catalogPick.ID {
		t.Fatalf("expected catalog product, got %s", selected[0].ProductID)
	}
}

func TestSelectGiftErrorsWhenNothingQualifies(t *testing.T) {
	svc := newSelector(t, &stubWishlistSource{}, &stubCatalogSource{})

	_, err := svc.SelectGift(context.Background(), Input{
		RecipientID: uuid.New(),
		BudgetCents: 5000,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSelectGiftRejectsBudgetBelowFloor(t *testing.T) {
	svc := newSelector(t, &stubWishlistSource{}, &stubCatalogSource{})

	_, err := svc.SelectGift(context.Background(), Input{
		RecipientID: uuid.New(),
		BudgetCents: 900,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestSelectGiftAppliesCategoryFiltersOnWishlistTier(t *testing.T) {
	listID := uuid.New()
	homeItem := product("Candle", 2000, "home")
	bookItem := product("Novel", 1800, "books")
	wishlists := &stubWishlistSource{
		lists:    []models.Wishlist{{ID: listID, IsPublic: true}},
		products: map[uuid.UUID][]models.Product{listID: {homeItem, bookItem}},
	}
	svc := newSelector(t, wishlists, &stubCatalogSource{})

	selected, err := svc.SelectGift(context.Background(), Input{
		RecipientID:     uuid.New(),
		BudgetCents:     5000,
		CategoryFilters: []string{"books"},
	})
	if err != nil {
		t.Fatalf("select gift: %v", err)
	}
	if selected[0].ProductID != bookItem.ID {
		t.Fatalf("expected filtered pick %s, got %s", bookItem.ID, selected[0].ProductID)
	}
}
