package controllers

import (
	"net/http"
	"strings"

	"github.com/giftwell-app/giftwell-backend/api/responses"
	"github.com/giftwell-app/giftwell-backend/api/validators"
	"github.com/giftwell-app/giftwell-backend/internal/addressing"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
)

// GetAddressForm resolves a capability token into the address collection form.
// The token arrives as a query parameter from the emailed link.
func GetAddressForm(svc addressing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "addressing service unavailable"))
			return
		}

		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "token is required"))
			return
		}

		result, err := svc.GetForm(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SubmitAddress consumes the capability token and records the shipping
// address. The paused execution resumes before this call returns.
func SubmitAddress(svc addressing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "addressing service unavailable"))
			return
		}

		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "token is required"))
			return
		}

		var body types.Address
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), token, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
