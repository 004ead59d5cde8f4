package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/giftwell-app/giftwell-backend/api/middleware"
	"github.com/giftwell-app/giftwell-backend/api/responses"
	"github.com/giftwell-app/giftwell-backend/api/validators"
	"github.com/giftwell-app/giftwell-backend/internal/nudges"
	"github.com/giftwell-app/giftwell-backend/internal/users"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
)

type sendNudgeRequest struct {
	ConnectionID uuid.UUID `json:"connection_id" validate:"required"`
	DataNeeded   []string  `json:"data_needed" validate:"required,min=1"`
	Occasion     string    `json:"occasion,omitempty"`
}

// SendNudge asks a connection to fill in missing profile data. The dispatcher
// enforces the per-connection rate limits and returns the denial reason.
func SendNudge(svc nudges.Service, usersSvc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || usersSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "nudges service unavailable"))
			return
		}

		var body sendNudgeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		sender, err := usersSvc.GetProfile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recipient, err := usersSvc.GetProfile(r.Context(), body.ConnectionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Send(r.Context(), nudges.SendInput{
			UserID:         userID,
			ConnectionID:   body.ConnectionID,
			SenderName:     strings.TrimSpace(sender.FirstName + " " + sender.LastName),
			RecipientName:  recipient.FirstName,
			RecipientEmail: recipient.Email,
			DataNeeded:     body.DataNeeded,
			Occasion:       body.Occasion,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !result.Eligible {
			// a rate-limit denial is a normal outcome, not an error
			responses.WriteSuccess(w, result)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func ListNudges(svc nudges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "nudges service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
