package orders

import (
	"context"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	"github.com/giftwell-app/giftwell-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates gift order persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the order inside the caller's transaction. The unique
// execution_id index rejects a second order for the same execution.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, order *models.GiftOrder) (*models.GiftOrder, error) {
	if tx == nil {
		tx = r.db
	}
	if err := tx.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads a single order.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.GiftOrder, error) {
	var order models.GiftOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByExecutionID loads the order materialized for an execution, if any.
func (r *Repository) FindByExecutionID(ctx context.Context, executionID uuid.UUID) (*models.GiftOrder, error) {
	var order models.GiftOrder
	if err := r.db.WithContext(ctx).Where("execution_id = ?", executionID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdatePaymentResult records the payment reference and final status.
func (r *Repository) UpdatePaymentResult(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status enums.OrderStatus, paymentRef *string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&models.GiftOrder{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"status":      status,
			"payment_ref": paymentRef,
		}).
		Error
}

// ListByUser returns a page of the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor string, limit int) (OrderPageDTO, error) {
	normalizedLimit := pagination.Clamp(limit)
	limitWithBuffer := pagination.FetchSize(limit)
	decodedCursor, err := pagination.Parse(cursor)
	if err != nil {
		return OrderPageDTO{}, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.GiftOrder{}).
		Where("user_id = ?", userID)
	if decodedCursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID,
		)
	}

	var rows []models.GiftOrder
	err = query.
		Order("created_at DESC, id DESC").
		Limit(limitWithBuffer).
		Find(&rows).
		Error
	if err != nil {
		return OrderPageDTO{}, err
	}

	page := OrderPageDTO{Items: rows}
	if len(rows) > normalizedLimit {
		page.Items = rows[:normalizedLimit]
		last := page.Items[len(page.Items)-1]
		page.NextCursor = pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		}.Encode()
	}
	return page, nil
}
