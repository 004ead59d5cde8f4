package addressing

import (
	"context"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates address request persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an addressing repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new capability token row.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, request *models.AddressRequest) (*models.AddressRequest, error) {
	if tx == nil {
		tx = r.db
	}
	if err := tx.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

// FindByToken loads a request by its opaque token.
func (r *Repository) FindByToken(ctx context.Context, token string) (*models.AddressRequest, error) {
	var request models.AddressRequest
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// Collect stores the submitted address behind the single-use guard: the
// update only lands while the token is uncollected and unexpired, so a
// replay or an expired link changes zero rows.
func (r *Repository) Collect(ctx context.Context, tx *gorm.DB, token string, address types.Address, now time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&models.AddressRequest{}).
		Where("token = ? AND collected_at IS NULL AND expires_at > ?", token, now).
		Updates(map[string]any{
			"shipping_address": &address,
			"collected_at":     now,
		})
	return result.RowsAffected, result.Error
}

// FindLatestByExecution returns the newest request issued for an execution.
func (r *Repository) FindLatestByExecution(ctx context.Context, executionID uuid.UUID) (*models.AddressRequest, error) {
	var request models.AddressRequest
	err := r.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("created_at DESC").
		First(&request).
		Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ListExpiredUncollected returns executions whose only outstanding request
// has lapsed. The expiry job fails those executions.
func (r *Repository) ListExpiredUncollected(ctx context.Context, now time.Time, limit int) ([]models.AddressRequest, error) {
	var rows []models.AddressRequest
	err := r.db.WithContext(ctx).
		Where("collected_at IS NULL AND expires_at <= ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
