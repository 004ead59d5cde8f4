package executions

import (
	"context"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	"github.com/giftwell-app/giftwell-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates gift event and execution persistence. Every write
// that advances the state machine is guarded so a lost race changes zero
// rows instead of clobbering a newer state.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an executions repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertEvent records a detected occasion occurrence. The rule+date unique
// index makes re-detection a no-op; the returned flag reports whether this
// call created the row.
func (r *Repository) InsertEvent(ctx context.Context, event *models.GiftEvent) (bool, error) {
	result := r.db.WithContext(ctx).
		Exec(`INSERT INTO gift_events (id, rule_id, user_id, occasion_date) VALUES (?, ?, ?, ?) ON CONFLICT (rule_id, occasion_date) DO NOTHING`,
			event.ID, event.RuleID, event.UserID, event.OccasionDate)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindEventByID loads a trigger event.
func (r *Repository) FindEventByID(ctx context.Context, id uuid.UUID) (*models.GiftEvent, error) {
	var event models.GiftEvent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// ListUnconsumedEvents returns trigger events nobody has processed yet.
func (r *Repository) ListUnconsumedEvents(ctx context.Context, limit int) ([]models.GiftEvent, error) {
	var rows []models.GiftEvent
	err := r.db.WithContext(ctx).
		Where("consumed_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ConsumeEvent stamps consumed_at exactly once. A second consumer sees zero
// rows affected and must back off.
func (r *Repository) ConsumeEvent(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, now time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&models.GiftEvent{}).
		Where("id = ? AND consumed_at IS NULL", eventID).
		Update("consumed_at", now)
	return result.RowsAffected, result.Error
}

// CreateExecution inserts the execution row for a consumed event.
func (r *Repository) CreateExecution(ctx context.Context, tx *gorm.DB, execution *models.GiftExecution) (*models.GiftExecution, error) {
	if tx == nil {
		tx = r.db
	}
	if err := tx.WithContext(ctx).Create(execution).Error; err != nil {
		return nil, err
	}
	return execution, nil
}

// FindByID loads a single execution.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.GiftExecution, error) {
	var execution models.GiftExecution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&execution).Error; err != nil {
		return nil, err
	}
	return &execution, nil
}

// FindByEventID loads the execution spawned by a trigger event, if any.
func (r *Repository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.GiftExecution, error) {
	var execution models.GiftExecution
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&execution).Error; err != nil {
		return nil, err
	}
	return &execution, nil
}

// TransitionStatus is the compare-and-set at the heart of the state
// machine: the update lands only while the row still holds the expected
// status. Extra column writes ride along atomically.
func (r *Repository) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to enums.ExecutionStatus, extra map[string]any) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	updates := map[string]any{"status": to}
	for column, value := range extra {
		updates[column] = value
	}
	result := tx.WithContext(ctx).
		Model(&models.GiftExecution{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// MarkFailed moves any non-terminal execution to failed with its reason.
func (r *Repository) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, reason string) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&models.GiftExecution{}).
		Where("id = ? AND status NOT IN ?", id, []enums.ExecutionStatus{
			enums.ExecutionStatusCompleted,
			enums.ExecutionStatusFailed,
		}).
		Updates(map[string]any{
			"status":        enums.ExecutionStatusFailed,
			"error_message": reason,
		})
	return result.RowsAffected, result.Error
}

// ListByUser returns a page of the user's executions, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor string, limit int) (ExecutionPage, error) {
	normalizedLimit := pagination.Clamp(limit)
	limitWithBuffer := pagination.FetchSize(limit)
	decodedCursor, err := pagination.Parse(cursor)
	if err != nil {
		return ExecutionPage{}, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.GiftExecution{}).
		Where("user_id = ?", userID)
	if decodedCursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID,
		)
	}

	var rows []models.GiftExecution
	err = query.
		Order("created_at DESC, id DESC").
		Limit(limitWithBuffer).
		Find(&rows).
		Error
	if err != nil {
		return ExecutionPage{}, err
	}

	page := ExecutionPage{Items: rows}
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
