package controllers

import (
	"net/http"

	"github.com/giftwell-app/giftwell-backend/api/middleware"
	"github.com/giftwell-app/giftwell-backend/api/responses"
	"github.com/giftwell-app/giftwell-backend/api/validators"
	"github.com/giftwell-app/giftwell-backend/internal/connections"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
)

type linkConnectionRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// LinkConnection connects the caller to an existing account by email.
func LinkConnection(svc connections.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "connections service unavailable"))
			return
		}

		var body linkConnectionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.LinkByEmail(r.Context(), middleware.UserIDFromContext(r.Context()), body.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func ListConnections(svc connections.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "connections service unavailable"))
			return
		}

		result, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
