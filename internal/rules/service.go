package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/giftwell-app/giftwell-backend/internal/connections"
	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ServiceParams groups dependencies for the rules service.
type ServiceParams struct {
	Repo            *Repository
	ConnectionsRepo *connections.Repository
	Gifting         config.GiftingConfig
}

// Service owns auto-gift rule and settings management.
type Service interface {
	CreateRule(ctx context.Context, input CreateRuleInput) (*RuleDTO, error)
	GetRule(ctx context.Context, userID, ruleID uuid.UUID) (*RuleDTO, error)
	ListRules(ctx context.Context, userID uuid.UUID) ([]RuleDTO, error)
	UpdateRule(ctx context.Context, input UpdateRuleInput) (*RuleDTO, error)
	DeactivateRule(ctx context.Context, userID, ruleID uuid.UUID) error
	GetSettings(ctx context.Context, userID uuid.UUID) (*SettingsDTO, error)
	UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*SettingsDTO, error)
}

type service struct {
	repo        *Repository
	connections *connections.Repository
	gifting     config.GiftingConfig
}

// NewService builds a rules service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rules repo is required")
	}
	if params.ConnectionsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "connections repo is required")
	}
	return &service{
		repo:        params.Repo,
		connections: params.ConnectionsRepo,
		gifting:     params.Gifting,
	}, nil
}

// MinBudget returns the smallest budget a rule may carry, in dollars.
func (s *service) minBudget() decimal.Decimal {
	return decimal.NewFromInt(int64(s.gifting.MinGiftPriceCents)).Div(decimal.NewFromInt(100))
}

// CreateRule validates and persists a new auto-gift rule.
func (s *service) CreateRule(ctx context.Context, input CreateRuleInput) (*RuleDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.validateRecipient(ctx, input.UserID, input.RecipientID, input.PendingRecipientEmail); err != nil {
		return nil, err
	}
	if !input.DateType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid date type")
	}
	if needsExplicitDate(input.DateType) && input.OccasionDate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s rules require an occasion date", input.DateType))
	}
	if err := s.validateBudget(input.BudgetLimit); err != nil {
		return nil, err
	}
	source := input.GiftSource
	if source == "" {
		source = enums.GiftSourceWishlist
	}
	if !source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid gift source")
	}
	leadDays := input.NotifyLeadDays
	if leadDays <= 0 {
		leadDays = s.gifting.OccasionLeadDays
	}

	rule := &models.GiftRule{
		ID:                    uuid.New(),
		UserID:                input.UserID,
		RecipientID:           input.RecipientID,
		PendingRecipientEmail: normalizeEmail(input.PendingRecipientEmail),
		DateType:              input.DateType,
		OccasionDate:          input.OccasionDate,
		BudgetLimit:           input.BudgetLimit,
		GiftSource:            source,
		CategoryFilters:       pq.StringArray(input.CategoryFilters),
		NotifyEnabled:         input.NotifyEnabled,
		NotifyLeadDays:        leadDays,
		IsActive:              true,
	}
	created, err := s.repo.CreateRule(ctx, rule)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create rule")
	}
	dto := toRuleDTO(*created)
	return &dto, nil
}

// GetRule returns a rule the user owns.
func (s *service) GetRule(ctx context.Context, userID, ruleID uuid.UUID) (*RuleDTO, error) {
	rule, err := s.loadOwnedRule(ctx, userID, ruleID)
	if err != nil {
		return nil, err
	}
	dto := toRuleDTO(*rule)
	return &dto, nil
}

// ListRules returns the user's rules, newest first.
func (s *service) ListRules(ctx context.Context, userID uuid.UUID) ([]RuleDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListRulesByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list rules")
	}
	out := make([]RuleDTO, 0, len(rows))
	for _, rule := range rows {
		out = append(out, toRuleDTO(rule))
	}
	return out, nil
}

// UpdateRule applies partial updates to a rule the user owns.
func (s *service) UpdateRule(ctx context.Context, input UpdateRuleInput) (*RuleDTO, error) {
	rule, err := s.loadOwnedRule(ctx, input.UserID, input.RuleID)
	if err != nil {
		return nil, err
	}

	if input.BudgetLimit != nil {
		if err := s.validateBudget(*input.BudgetLimit); err != nil {
			return nil, err
		}
		rule.BudgetLimit = *input.BudgetLimit
	}
	if input.GiftSource != nil {
		if !input.GiftSource.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid gift source")
		}
		rule.GiftSource = *input.GiftSource
	}
	if input.CategoryFilters != nil {
		rule.CategoryFilters = pq.StringArray(*input.CategoryFilters)
	}
	if input.OccasionDate != nil {
		rule.OccasionDate = input.OccasionDate
	}
	if input.NotifyEnabled != nil {
		rule.NotifyEnabled = *input.NotifyEnabled
	}
	if input.NotifyLeadDays != nil {
		if *input.NotifyLeadDays < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "notify lead days cannot be negative")
		}
		rule.NotifyLeadDays = *input.NotifyLeadDays
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	if needsExplicitDate(rule.DateType) && rule.OccasionDate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s rules require an occasion date", rule.DateType))
	}

	updated, err := s.repo.UpdateRule(ctx, rule)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update rule")
	}
	dto := toRuleDTO(*updated)
	return &dto, nil
}

// DeactivateRule turns a rule off without deleting its history.
func (s *service) DeactivateRule(ctx context.Context, userID, ruleID uuid.UUID) error {
	if _, err := s.loadOwnedRule(ctx, userID, ruleID); err != nil {
		return err
	}
	if err := s.repo.SetRuleActive(ctx, ruleID, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to deactivate rule")
	}
	return nil
}

// GetSettings returns the user's settings, synthesizing defaults when the
// row does not exist yet.
func (s *service) GetSettings(ctx context.Context, userID uuid.UUID) (*SettingsDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			dto := toSettingsDTO(s.defaultSettings(userID))
			return &dto, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load settings")
	}
	dto := toSettingsDTO(*settings)
	return &dto, nil
}

// UpdateSettings validates and writes the user's settings row.
func (s *service) UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*SettingsDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.validateBudget(input.DefaultBudgetLimit); err != nil {
		return nil, err
	}
	source := input.DefaultGiftSource
	if source == "" {
		source = enums.GiftSourceWishlist
	}
	if !source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid gift source")
	}

	saved, err := s.repo.UpsertSettings(ctx, &models.GiftSettings{
		UserID:             input.UserID,
		DefaultBudgetLimit: input.DefaultBudgetLimit,
		AutoApproveGifts:   input.AutoApproveGifts,
		DefaultGiftSource:  source,
		EmailNotifications: input.EmailNotifications,
		PushNotifications:  input.PushNotifications,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to save settings")
	}
	dto := toSettingsDTO(*saved)
	return &dto, nil
}

func (s *service) defaultSettings(userID uuid.UUID) models.GiftSettings {
	return models.GiftSettings{
		UserID:             userID,
		DefaultBudgetLimit: decimal.NewFromInt(int64(s.gifting.DefaultBudgetDollars)),
		AutoApproveGifts:   false,
		DefaultGiftSource:  enums.GiftSourceWishlist,
		EmailNotifications: true,
		PushNotifications:  true,
	}
}

func (s *service) validateBudget(budget decimal.Decimal) error {
	min := s.minBudget()
	if budget.LessThan(min) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("budget limit must be at least $%s", min.StringFixed(2)))
	}
	return nil
}

func (s *service) validateRecipient(ctx context.Context, userID uuid.UUID, recipientID *uuid.UUID, pendingEmail *string) error {
	hasRecipient := recipientID != nil && *recipientID != uuid.Nil
	hasEmail := pendingEmail != nil && strings.TrimSpace(*pendingEmail) != ""
	if hasRecipient == hasEmail {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of recipient id or pending recipient email is required")
	}
	if hasRecipient {
		connected, err := s.connections.AreConnected(ctx, userID, *recipientID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to check connection")
		}
		if !connected {
			return pkgerrors.New(pkgerrors.CodeForbidden, "recipient is not a connection")
		}
	}
	return nil
}

func (s *service) loadOwnedRule(ctx context.Context, userID, ruleID uuid.UUID) (*models.GiftRule, error) {
	if ruleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule id is required")
	}
	rule, err := s.repo.FindRuleByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load rule")
	}
	if rule.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "rule belongs to another user")
	}
	return rule, nil
}

func needsExplicitDate(dateType enums.DateType) bool {
	return dateType == enums.DateTypeAnniversary || dateType == enums.DateTypeCustom
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	normalized := strings.ToLower(strings.TrimSpace(*email))
	if normalized == "" {
		return nil
	}
	return &normalized
}
