package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/giftwell-app/giftwell-backend/api/middleware"
	"github.com/giftwell-app/giftwell-backend/api/responses"
	"github.com/giftwell-app/giftwell-backend/api/validators"
	"github.com/giftwell-app/giftwell-backend/internal/executions"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
)

// ListExecutions returns the caller's gift executions, newest first.
func ListExecutions(svc executions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "executions service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		result, err := svc.ListExecutions(r.Context(), middleware.UserIDFromContext(r.Context()), cursor, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetExecution(svc executions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "executions service unavailable"))
			return
		}

		executionID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid execution id"))
			return
		}

		result, err := svc.GetExecution(r.Context(), middleware.UserIDFromContext(r.Context()), executionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type approveExecutionRequest struct {
	Decision           string      `json:"decision" validate:"omitempty,oneof=approve decline"`
	SelectedProductIDs []uuid.UUID `json:"selected_product_ids" validate:"omitempty,max=10"`
}

// ApproveExecution records the sender's decision on a pending gift. An empty
// body approves with the full recommended selection; a decline moves the
// execution to failed. Deciding an already completed or failed execution
// returns it unchanged.
func ApproveExecution(svc executions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "executions service unavailable"))
			return
		}

		executionID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid execution id"))
			return
		}

		var body approveExecutionRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		actorID := middleware.UserIDFromContext(r.Context())
		var result *executions.ExecutionDTO
		if body.Decision == "decline" {
			result, err = svc.Decline(r.Context(), executionID, actorID)
		} else {
			result, err = svc.Approve(r.Context(), executionID, actorID, body.SelectedProductIDs)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProcessEvent is the internal entrypoint for trigger event delivery. It is
// mounted on the internal router, not the public API.
func ProcessEvent(svc executions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "executions service unavailable"))
			return
		}

		eventID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}

		result, err := svc.ProcessEvent(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
