package wishlist

import (
	"context"
	"errors"
	"strings"

	"github.com/giftwell-app/giftwell-backend/internal/catalog"
	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	CatalogRepo  *catalog.Repository
}

// Service exposes business rules for wishlist management.
type Service interface {
	CreateWishlist(ctx context.Context, input CreateWishlistInput) (*WishlistDTO, error)
	ListWishlists(ctx context.Context, ownerID uuid.UUID) ([]WishlistDTO, error)
	GetWishlistItems(ctx context.Context, viewerID, wishlistID uuid.UUID) (WishlistItemsDTO, error)
	AddItem(ctx context.Context, ownerID, wishlistID, productID uuid.UUID) error
	RemoveItem(ctx context.Context, ownerID, wishlistID, productID uuid.UUID) error
}

type service struct {
	wishlistRepo *Repository
	catalogRepo  *catalog.Repository
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.CatalogRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	return &service{
		wishlistRepo: params.WishlistRepo,
		catalogRepo:  params.CatalogRepo,
	}, nil
}

// CreateWishlist validates and persists a new list for the owner.
func (s *service) CreateWishlist(ctx context.Context, input CreateWishlistInput) (*WishlistDTO, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist title is required")
	}

	created, err := s.wishlistRepo.Create(ctx, &models.Wishlist{
		ID:       uuid.New(),
		UserID:   input.OwnerID,
		Title:    title,
		IsPublic: input.IsPublic,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create wishlist")
	}
	dto := toWishlistDTO(*created)
	return &dto, nil
}

// ListWishlists returns the owner's lists, newest first.
func (s *service) ListWishlists(ctx context.Context, ownerID uuid.UUID) ([]WishlistDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	lists, err := s.wishlistRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list wishlists")
	}
	out := make([]WishlistDTO, 0, len(lists))
	for _, list := range lists {
		out = append(out, toWishlistDTO(list))
	}
	return out, nil
}

// GetWishlistItems returns a list's saved products. Private lists are only
// visible to their owner.
func (s *service) GetWishlistItems(ctx context.Context, viewerID, wishlistID uuid.UUID) (WishlistItemsDTO, error) {
	list, err := s.loadWishlist(ctx, wishlistID)
	if err != nil {
		return WishlistItemsDTO{}, err
	}
	if !list.IsPublic && list.UserID != viewerID {
		return WishlistItemsDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "wishlist is private")
	}
	products, err := s.wishlistRepo.ListItemProducts(ctx, wishlistID)
	if err != nil {
		return WishlistItemsDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load wishlist items")
	}
	return WishlistItemsDTO{Wishlist: toWishlistDTO(*list), Products: products}, nil
}

// AddItem ensures the product exists and saves it to the owner's list.
func (s *service) AddItem(ctx context.Context, ownerID, wishlistID, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	list, err := s.loadWishlist(ctx, wishlistID)
	if err != nil {
		return err
	}
	if list.UserID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "wishlist belongs to another user")
	}
	if _, err := s.catalogRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load product")
	}
	if err := s.wishlistRepo.AddItem(ctx, wishlistID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to add wishlist item")
	}
	return nil
}

// RemoveItem drops the product from the owner's list if present.
func (s *service) RemoveItem(ctx context.Context, ownerID, wishlistID, productID uuid.UUID) error {
	list, err := s.loadWishlist(ctx, wishlistID)
	if err != nil {
		return err
	}
	if list.UserID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "wishlist belongs to another user")
	}
	if err := s.wishlistRepo.RemoveItem(ctx, wishlistID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to remove wishlist item")
	}
	return nil
}

func (s *service) loadWishlist(ctx context.Context, wishlistID uuid.UUID) (*models.Wishlist, error) {
	if wishlistID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist id is required")
	}
	list, err := s.wishlistRepo.FindByID(ctx, wishlistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "wishlist not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load wishlist")
	}
	return list, nil
}
