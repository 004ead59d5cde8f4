package users

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
)

// UserDTO is the public user shape; the password hash never leaves the package.
type UserDTO struct {
	ID              uuid.UUID      `json:"id"`
	Email           string         `json:"email"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Birthday        *time.Time     `json:"birthday,omitempty"`
	ShippingAddress *types.Address `json:"shipping_address,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// FromModel converts a user row to its public shape.
func FromModel(user *models.User) UserDTO {
	return UserDTO{
		ID:              user.ID,
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Birthday:        user.Birthday,
		ShippingAddress: user.ShippingAddress,
		CreatedAt:       user.CreatedAt,
	}
}

// RegisterInput captures a signup request.
type RegisterInput struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Birthday  *time.Time `json:"birthday,omitempty"`
}

// LoginInput captures a credential pair.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionDTO carries the token pair returned on login and refresh.
type SessionDTO struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	User         UserDTO `json:"user"`
}

// UpdateProfileInput carries optional profile changes.
type UpdateProfileInput struct {
	FirstName *string    `json:"first_name,omitempty"`
	LastName  *string    `json:"last_name,omitempty"`
	Birthday  *time.Time `json:"birthday,omitempty"`
}
