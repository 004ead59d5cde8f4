package rules

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateRuleInput carries the fields a user supplies when creating a rule.
// Exactly one of RecipientID or PendingRecipientEmail must be provided.
type CreateRuleInput struct {
	UserID                uuid.UUID
	RecipientID           *uuid.UUID
	PendingRecipientEmail *string
	DateType              enums.DateType
	OccasionDate          *time.Time
	BudgetLimit           decimal.Decimal
	GiftSource            enums.GiftSource
	CategoryFilters       []string
	NotifyEnabled         bool
	NotifyLeadDays        int
}

// UpdateRuleInput carries the mutable fields of an existing rule.
type UpdateRuleInput struct {
	RuleID          uuid.UUID
	UserID          uuid.UUID
	BudgetLimit     *decimal.Decimal
	GiftSource      *enums.GiftSource
	CategoryFilters *[]string
	OccasionDate    *time.Time
	NotifyEnabled   *bool
	NotifyLeadDays  *int
	IsActive        *bool
}

// UpdateSettingsInput carries the user-editable settings fields. Spend
// counters are intentionally absent.
type UpdateSettingsInput struct {
	UserID             uuid.UUID
	DefaultBudgetLimit decimal.Decimal
	AutoApproveGifts   bool
	DefaultGiftSource  enums.GiftSource
	EmailNotifications bool
	PushNotifications  bool
}

// RuleDTO is the rule shape returned to API consumers.
type RuleDTO struct {
	ID                    uuid.UUID        `json:"id"`
	UserID                uuid.UUID        `json:"user_id"`
	RecipientID           *uuid.UUID       `json:"recipient_id,omitempty"`
	PendingRecipientEmail *string          `json:"pending_recipient_email,omitempty"`
	DateType              enums.DateType   `json:"date_type"`
	OccasionDate          *time.Time       `json:"occasion_date,omitempty"`
	BudgetLimit           decimal.Decimal  `json:"budget_limit"`
	GiftSource            enums.GiftSource `json:"gift_source"`
	CategoryFilters       []string         `json:"category_filters,omitempty"`
	NotifyEnabled         bool             `json:"notify_enabled"`
	NotifyLeadDays        int              `json:"notify_lead_days"`
	IsActive              bool             `json:"is_active"`
	CreatedAt             time.Time        `json:"created_at"`
}

// SettingsDTO is the settings shape returned to API consumers.
type SettingsDTO struct {
	UserID             uuid.UUID        `json:"user_id"`
	DefaultBudgetLimit decimal.Decimal  `json:"default_budget_limit"`
	AutoApproveGifts   bool             `json:"auto_approve_gifts"`
	DefaultGiftSource  enums.GiftSource `json:"default_gift_source"`
	EmailNotifications bool             `json:"email_notifications"`
	PushNotifications  bool             `json:"push_notifications"`
	SpentThisMonth     decimal.Decimal  `json:"spent_this_month"`
	SpentThisYear      decimal.Decimal  `json:"spent_this_year"`
}

func toRuleDTO(rule models.GiftRule) RuleDTO {
	return RuleDTO{
		ID:                    rule.ID,
		UserID:                rule.UserID,
		RecipientID:           rule.RecipientID,
		PendingRecipientEmail: rule.PendingRecipientEmail,
		DateType:              rule.DateType,
		OccasionDate:          rule.OccasionDate,
		BudgetLimit:           rule.BudgetLimit,
		GiftSource:            rule.GiftSource,
		CategoryFilters:       rule.CategoryFilters,
		NotifyEnabled:         rule.NotifyEnabled,
		NotifyLeadDays:        rule.NotifyLeadDays,
		IsActive:              rule.IsActive,
		CreatedAt:             rule.CreatedAt,
	}
}

func toSettingsDTO(settings models.GiftSettings) SettingsDTO {
	return SettingsDTO{
		UserID:             settings.UserID,
		DefaultBudgetLimit: settings.DefaultBudgetLimit,
		AutoApproveGifts:   settings.AutoApproveGifts,
		DefaultGiftSource:  settings.DefaultGiftSource,
		EmailNotifications: settings.EmailNotifications,
		PushNotifications:  settings.PushNotifications,
		SpentThisMonth:     settings.SpentThisMonth,
		SpentThisYear:      settings.SpentThisYear,
	}
}
