package connections

import (
	"context"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates social-graph persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a connections repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Link inserts both directions of an accepted connection, ignoring
// duplicates so re-accepting is harmless.
func (r *Repository) Link(ctx context.Context, userID, otherID uuid.UUID) error {
	if userID == uuid.Nil || otherID == uuid.Nil || userID == otherID {
		return gorm.ErrInvalidValue
	}
	return r.db.WithContext(ctx).
		Exec(`INSERT INTO connections (id, user_id, connection_id, status) VALUES (?, ?, ?, 'accepted'), (?, ?, ?, 'accepted') ON CONFLICT (user_id, connection_id) DO NOTHING`,
			uuid.New(), userID, otherID, uuid.New(), otherID, userID).
		Error
}

// AreConnected reports whether an accepted edge exists from userID to otherID.
func (r *Repository) AreConnected(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("user_id = ? AND connection_id = ? AND status = ?", userID, otherID, "accepted").
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser returns the user's accepted connections, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Connection, error) {
	var rows []models.Connection
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, "accepted").
		Order("created_at DESC, id DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
