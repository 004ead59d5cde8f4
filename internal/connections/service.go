package connections

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ConnectionDTO is one edge of the social graph with the peer's name resolved.
type ConnectionDTO struct {
	ID           uuid.UUID `json:"id"`
	ConnectionID uuid.UUID `json:"connection_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}

// Service manages accepted connections between accounts.
type Service interface {
	LinkByEmail(ctx context.Context, userID uuid.UUID, email string) (*ConnectionDTO, error)
	List(ctx context.Context, userID uuid.UUID) ([]ConnectionDTO, error)
	AreConnected(ctx context.Context, userID, otherID uuid.UUID) (bool, error)
}

type service struct {
	repo  *Repository
	users userLookup
}

// ServiceParams bundles the dependencies required to build a connections service.
type ServiceParams struct {
	Repo  *Repository
	Users userLookup
}

// NewService constructs the connections service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "connections repo is required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user lookup is required")
	}
	return &service{repo: params.Repo, users: params.Users}, nil
}

// LinkByEmail connects the caller with an existing account by email.
func (s *service) LinkByEmail(ctx context.Context, userID uuid.UUID, email string) (*ConnectionDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	other, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "no account with that email")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if other.ID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot connect to yourself")
	}

	if err := s.repo.Link(ctx, userID, other.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link connection")
	}

	return &ConnectionDTO{
		ConnectionID: other.ID,
		FirstName:    other.FirstName,
		LastName:     other.LastName,
		Email:        other.Email,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// List returns the caller's connections with peer names resolved.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ConnectionDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list connections")
	}

	dtos := make([]ConnectionDTO, 0, len(rows))
	for _, row := range rows {
		dto := ConnectionDTO{
			ID:           row.ID,
			ConnectionID: row.ConnectionID,
			CreatedAt:    row.CreatedAt,
		}
		if peer, err := s.users.FindByID(ctx, row.ConnectionID); err == nil {
			dto.FirstName = peer.FirstName
			dto.LastName = peer.LastName
			dto.Email = peer.Email
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

// AreConnected reports whether an accepted edge exists between the two users.
func (s *service) AreConnected(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	connected, err := s.repo.AreConnected(ctx, userID, otherID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check connection")
	}
	return connected, nil
}
