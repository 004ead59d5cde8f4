package rules

import (
	"context"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository encapsulates gift rule and settings persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a rules repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateRule inserts a new auto-gift rule.
func (r *Repository) CreateRule(ctx context.Context, rule *models.GiftRule) (*models.GiftRule, error) {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// FindRuleByID loads a single rule.
func (r *Repository) FindRuleByID(ctx context.Context, id uuid.UUID) (*models.GiftRule, error) {
	var rule models.GiftRule
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRulesByUser returns every rule a user owns, newest first.
func (r *Repository) ListRulesByUser(ctx context.Context, userID uuid.UUID) ([]models.GiftRule, error) {
	var rows []models.GiftRule
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveRules returns every active rule. The occasion scan walks this
// set; rule volume is bounded per user so a full scan stays cheap.
func (r *Repository) ListActiveRules(ctx context.Context) ([]models.GiftRule, error) {
	var rows []models.GiftRule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateRule persists the mutable rule fields.
func (r *Repository) UpdateRule(ctx context.Context, rule *models.GiftRule) (*models.GiftRule, error) {
	err := r.db.WithContext(ctx).
		Model(&models.GiftRule{}).
		Where("id = ?", rule.ID).
		Updates(map[string]any{
			"budget_limit":     rule.BudgetLimit,
			"gift_source":      rule.GiftSource,
			"category_filters": rule.CategoryFilters,
			"occasion_date":    rule.OccasionDate,
			"notify_enabled":   rule.NotifyEnabled,
			"notify_lead_days": rule.NotifyLeadDays,
			"is_active":        rule.IsActive,
		}).
		Error
	if err != nil {
		return nil, err
	}
	return r.FindRuleByID(ctx, rule.ID)
}

// SetRuleActive flips the active flag without touching other fields.
func (r *Repository) SetRuleActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.GiftRule{}).
		Where("id = ?", id).
		Update("is_active", active).
		Error
}

// GetSettings loads a user's gift settings.
func (r *Repository) GetSettings(ctx context.Context, userID uuid.UUID) (*models.GiftSettings, error) {
	var settings models.GiftSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpsertSettings writes the user's settings row, creating it on first save.
// Spend counters are never written here; AddSpend and the rollover job own
// those columns.
func (r *Repository) UpsertSettings(ctx context.Context, settings *models.GiftSettings) (*models.GiftSettings, error) {
	err := r.db.WithContext(ctx).
		Exec(`INSERT INTO gift_settings (user_id, default_budget_limit, auto_approve_gifts, default_gift_source, email_notifications, push_notifications)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
  default_budget_limit = EXCLUDED.default_budget_limit,
  auto_approve_gifts = EXCLUDED.auto_approve_gifts,
  default_gift_source = EXCLUDED.default_gift_source,
  email_notifications = EXCLUDED.email_notifications,
  push_notifications = EXCLUDED.push_notifications,
  updated_at = CURRENT_TIMESTAMP`,
			settings.UserID, settings.DefaultBudgetLimit, settings.AutoApproveGifts,
			settings.DefaultGiftSource, settings.EmailNotifications, settings.PushNotifications).
		Error
	if err != nil {
		return nil, err
	}
	return r.GetSettings(ctx, settings.UserID)
}

// AddSpend increments both spend counters inside the caller's transaction.
func (r *Repository) AddSpend(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error {
	return tx.WithContext(ctx).
		Exec(`UPDATE gift_settings SET spent_this_month = spent_this_month + ?, spent_this_year = spent_this_year + ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`,
			amount, amount, userID).
		Error
}

// ResetMonthlySpend zeroes every user's monthly counter. Called by the
// rollover job at month boundaries.
func (r *Repository) ResetMonthlySpend(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Exec(`UPDATE gift_settings SET spent_this_month = 0, updated_at = CURRENT_TIMESTAMP WHERE spent_this_month <> 0`)
	return result.RowsAffected, result.Error
}

// ResetYearlySpend zeroes every user's yearly counter at year boundaries.
func (r *Repository) ResetYearlySpend(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Exec(`UPDATE gift_settings SET spent_this_year = 0, updated_at = CURRENT_TIMESTAMP WHERE spent_this_year <> 0`)
	return result.RowsAffected, result.Error
}
