package selection

import (
	"context"
	"errors"

	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type wishlistSource interface {
	ListPublicByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Wishlist, error)
	ListItemProducts(ctx context.Context, wishlistID uuid.UUID) ([]models.Product, error)
}

type catalogSource interface {
	PickTopInBand(ctx context.Context, minCents, maxCents int, categories []string) (*models.Product, error)
}

// Input bounds one selection pass for a single recipient.
type Input struct {
	RecipientID     uuid.UUID
	BudgetCents     int
	CategoryFilters []string
}

// ServiceParams groups dependencies for the gift selector.
type ServiceParams struct {
	Wishlists wishlistSource
	Catalog   catalogSource
	Gifting   config.GiftingConfig
	Logger    *logger.Logger
}

// Service picks the gift for an execution: the recipient's own wishlist
// first, the popularity-ranked catalog as the fallback tier.
type Service interface {
	SelectGift(ctx context.Context, input Input) (types.SelectedProducts, error)
}

type service struct {
	wishlists wishlistSource
	catalog   catalogSource
	gifting   config.GiftingConfig
	logg      *logger.Logger
}

// NewService builds a selector with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Wishlists == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist source is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog source is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		wishlists: params.Wishlists,
		catalog:   params.Catalog,
		gifting:   params.Gifting,
		logg:      params.Logger,
	}, nil
}

// SelectGift returns exactly one product stub. Every candidate must cost at
// least the platform floor and at most the rule's budget; a wishlist hit
// always wins over the catalog tier.
func (s *service) SelectGift(ctx context.Context, input Input) (types.SelectedProducts, error) {
	if input.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id is required")
	}
	minCents := s.gifting.MinGiftPriceCents
	if input.BudgetCents < minCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget is below the minimum gift price")
	}

	stub, err := s.selectFromWishlists(ctx, input, minCents)
	if err != nil {
		// a wishlist store blip must not sink the whole selection; the
		// catalog tier still gets its chance
		s.logg.Error(ctx, "wishlist tier unavailable, falling through to catalog", err)
		stub = nil
	}
	if stub != nil {
		return types.SelectedProducts{*stub}, nil
	}

	stub, err = s.selectFromCatalog(ctx, input, minCents)
	if err != nil {
		return nil, err
	}
	return types.SelectedProducts{*stub}, nil
}

// selectFromWishlists scans the recipient's public wishlists newest-first
// and returns the most recently added affordable item, or nil when nothing
// qualifies. The repo orders lists and items by created_at DESC, so the
// first eligible hit is the winner.
func (s *service) selectFromWishlists(ctx context.Context, input Input, minCents int) (*types.ProductStub, error) {
	lists, err := s.wishlists.ListPublicByOwner(ctx, input.RecipientID, s.gifting.WishlistScanLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to scan wishlists")
	}

	for _, list := range lists {
		products, err := s.wishlists.ListItemProducts(ctx, list.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load wishlist items")
		}
		for i := range products {
			if !s.affordable(products[i], input, minCents) {
				continue
			}
			s.logg.Info(s.logg.WithField(ctx, "product_id", products[i].ID.String()), "wishlist tier matched")
			return stubFrom(products[i], enums.GiftSourceWishlist), nil
		}
	}
	return nil, nil
}

func (s *service) selectFromCatalog(ctx context.Context, input Input, minCents int) (*types.ProductStub, error) {
	product, err := s.catalog.PickTopInBand(ctx, minCents, input.BudgetCents, input.CategoryFilters)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "no suitable gift found within budget")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to query catalog")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "catalog tier matched")
	return stubFrom(*product, enums.GiftSourcePopular), nil
}

func (s *service) affordable(product models.Product, input Input, minCents int) bool {
	if !product.IsActive {
		return false
	}
	if product.PriceCents < minCents || product.PriceCents > input.BudgetCents {
		return false
	}
	if len(input.CategoryFilters) == 0 {
		return true
	}
	for _, category := range input.CategoryFilters {
		if product.Category == category {
			return true
		}
	}
	return false
}

func stubFrom(product models.Product, source enums.GiftSource) *types.ProductStub {
	return &types.ProductStub{
		ProductID:  product.ID,
		Title:      product.Title,
		PriceCents: product.PriceCents,
		ImageURL:   product.ImageURL,
		Source:     source,
	}
}
