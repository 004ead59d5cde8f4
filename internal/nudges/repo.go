package nudges

import (
	"context"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates nudge persistence. Sent rows are the rate
// limiter's source of truth.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a nudges repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends one sent nudge.
func (r *Repository) Insert(ctx context.Context, tx *gorm.DB, nudge *models.ConnectionNudge) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(nudge).Error
}

// CountSentSince counts nudges from a user to one connection on or after
// the cutoff.
func (r *Repository) CountSentSince(ctx context.Context, userID, connectionID uuid.UUID, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ConnectionNudge{}).
		Where("user_id = ? AND connection_id = ? AND sent_at >= ?", userID, connectionID, cutoff).
		Count(&count).
		Error
	return count, err
}

// LastSentAt returns the most recent send time for the pair, or nil when
// the pair has never been nudged.
func (r *Repository) LastSentAt(ctx context.Context, userID, connectionID uuid.UUID) (*time.Time, error) {
	var nudge models.ConnectionNudge
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND connection_id = ?", userID, connectionID).
		Order("sent_at DESC").
		First(&nudge).
		Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &nudge.SentAt, nil
}

// ListByUser returns the user's sent nudges, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ConnectionNudge, error) {
	var rows []models.ConnectionNudge
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sent_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
