package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/giftwell-app/giftwell-backend/api/middleware"
	"github.com/giftwell-app/giftwell-backend/api/responses"
	"github.com/giftwell-app/giftwell-backend/api/validators"
	"github.com/giftwell-app/giftwell-backend/internal/rules"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
)

type createRuleRequest struct {
	RecipientID           *uuid.UUID      `json:"recipient_id,omitempty"`
	PendingRecipientEmail *string         `json:"pending_recipient_email,omitempty"`
	DateType              string          `json:"date_type" validate:"required"`
	OccasionDate          *time.Time      `json:"occasion_date,omitempty"`
	BudgetLimit           decimal.Decimal `json:"budget_limit" validate:"required"`
	GiftSource            string          `json:"gift_source" validate:"required"`
	CategoryFilters       []string        `json:"category_filters,omitempty"`
	NotifyEnabled         bool            `json:"notify_enabled"`
	NotifyLeadDays        int             `json:"notify_lead_days"`
}

type updateRuleRequest struct {
	BudgetLimit     *decimal.Decimal `json:"budget_limit,omitempty"`
	GiftSource      *string          `json:"gift_source,omitempty"`
	CategoryFilters *[]string        `json:"category_filters,omitempty"`
	OccasionDate    *time.Time       `json:"occasion_date,omitempty"`
	NotifyEnabled   *bool            `json:"notify_enabled,omitempty"`
	NotifyLeadDays  *int             `json:"notify_lead_days,omitempty"`
	IsActive        *bool            `json:"is_active,omitempty"`
}

type updateSettingsRequest struct {
	DefaultBudgetLimit decimal.Decimal `json:"default_budget_limit" validate:"required"`
	AutoApproveGifts   bool            `json:"auto_approve_gifts"`
	DefaultGiftSource  string          `json:"default_gift_source" validate:"required"`
	EmailNotifications bool            `json:"email_notifications"`
	PushNotifications  bool            `json:"push_notifications"`
}

// CreateRule registers a new auto-gift rule for the caller.
func CreateRule(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rules service unavailable"))
			return
		}

		var body createRuleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateRule(r.Context(), rules.CreateRuleInput{
			UserID:                middleware.UserIDFromContext(r.Context()),
			RecipientID:           body.RecipientID,
			PendingRecipientEmail: body.PendingRecipientEmail,
			DateType:              enums.DateType(body.DateType),
			OccasionDate:          body.OccasionDate,
			BudgetLimit:           body.BudgetLimit,
			GiftSource:            enums.GiftSource(body.GiftSource),
			CategoryFilters:       body.CategoryFilters,
			NotifyEnabled:         body.NotifyEnabled,
			NotifyLeadDays:        body.NotifyLeadDays,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func ListRules(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rules service unavailable"))
			return
		}

		result, err := svc.ListRules(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetRule(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rules service unavailable"))
			return
		}

		ruleID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rule id"))
			return
		}

		result, err := svc.GetRule(r.Context(), middleware.UserIDFromContext(r.Context()), ruleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func UpdateRule(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rules service unavailable"))
			return
		}

		ruleID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rule id"))
			return
		}

		var body updateRuleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := rules.UpdateRuleInput{
			RuleID:          ruleID,
			UserID:          middleware.UserIDFromContext(r.Context()),
			BudgetLimit:     body.BudgetLimit,
			CategoryFilters: body.CategoryFilters,
			OccasionDate:    body.OccasionDate,
			NotifyEnabled:   body.NotifyEnabled,
			NotifyLeadDays:  body.NotifyLeadDays,
			IsActive:        body.IsActive,
		}
		if body.GiftSource != nil {
			source := enums.GiftSource(*body.GiftSource)
			input.GiftSource = &source
		}

		result, err := svc.UpdateRule(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DeactivateRule disables a rule without deleting its execution history.
func DeactivateRule(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rules service unavailable"))
			return
		}

		ruleID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rule id"))
			return
		}

		if err := svc.DeactivateRule(r.Context(), middleware.UserIDFromContext(r.Context()), ruleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

func GetSettings(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rules service unavailable"))
			return
		}

		result, err := svc.GetSettings(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func UpdateSettings(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rules service unavailable"))
			return
		}

		var body updateSettingsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateSettings(r.Context(), rules.UpdateSettingsInput{
			UserID:             middleware.UserIDFromContext(r.Context()),
			DefaultBudgetLimit: body.DefaultBudgetLimit,
			AutoApproveGifts:   body.AutoApproveGifts,
			DefaultGiftSource:  enums.GiftSource(body.DefaultGiftSource),
			EmailNotifications: body.EmailNotifications,
			PushNotifications:  body.PushNotifications,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
