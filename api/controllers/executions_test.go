package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/giftwell-app/giftwell-backend/api/middleware"
	"github.com/giftwell-app/giftwell-backend/internal/executions"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
)

type stubExecutionsService struct {
	approved  []uuid.UUID
	declined  []uuid.UUID
	keep      []uuid.UUID
	execution *executions.ExecutionDTO
	err       error
}

func (s *stubExecutionsService) ProcessEvent(_ context.Context, _ uuid.UUID) (*executions.ExecutionDTO, error) {
	return s.execution, s.err
}

func (s *stubExecutionsService) Approve(_ context.Context, executionID, _ uuid.UUID, keepProducts []uuid.UUID) (*executions.ExecutionDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.approved = append(s.approved, executionID)
	s.keep = keepProducts
	return s.execution, nil
}

func (s *stubExecutionsService) Decline(_ context.Context, executionID, _ uuid.UUID) (*executions.ExecutionDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.declined = append(s.declined, executionID)
	return s.execution, nil
}

func (s *stubExecutionsService) ResumeWithAddress(_ context.Context, _ uuid.UUID, _ types.Address) error {
	return s.err
}

func (s *stubExecutionsService) Fail(_ context.Context, _ uuid.UUID, _ string) error {
	return s.err
}

func (s *stubExecutionsService) GetExecution(_ context.Context, _, _ uuid.UUID) (*executions.ExecutionDTO, error) {
	return s.execution, s.err
}

func (s *stubExecutionsService) ListExecutions(_ context.Context, _ uuid.UUID, _ string, _ int) (executions.ExecutionPage, error) {
	return executions.ExecutionPage{}, s.err
}

func authedRequest(method, target string, userID uuid.UUID, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := middleware.WithUserID(req.Context(), userID)
	rc := chi.NewRouteContext()
	for key, value := range params {
		rc.URLParams.Add(key, value)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	return req.WithContext(ctx)
}

func TestApproveExecutionReturnsExecution(t *testing.T) {
	executionID := uuid.New()
	userID := uuid.New()
	svc := &stubExecutionsService{
		execution: &executions.ExecutionDTO{ID: executionID, UserID: userID, Status: enums.ExecutionStatusApproved},
	}

	req := authedRequest(http.MethodPost, "/api/v1/executions/"+executionID.String()+"/approve", userID, map[string]string{"id": executionID.String()})
	resp := httptest.NewRecorder()
	ApproveExecution(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.approved) != 1 || svc.approved[0] != executionID {
		t.Fatalf("expected approve call for %s got %v", executionID, svc.approved)
	}

	var payload struct {
		Data executions.ExecutionDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Data.Status != enums.ExecutionStatusApproved {
		t.Fatalf("expected approved status got %s", payload.Data.Status)
	}
}

func TestApproveExecutionRejectsBadID(t *testing.T) {
	svc := &stubExecutionsService{}
	req := authedRequest(http.MethodPost, "/api/v1/executions/nope/approve", uuid.New(), map[string]string{"id": "nope"})
	resp := httptest.NewRecorder()
	ApproveExecution(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(svc.approved) != 0 {
		t.Fatal("service should not be called with an invalid id")
	}
}

func TestApproveExecutionPropagatesForbidden(t *testing.T) {
	svc := &stubExecutionsService{err: pkgerrors.New(pkgerrors.CodeForbidden, "execution belongs to another user")}
	executionID := uuid.New()
	req := authedRequest(http.MethodPost, "/api/v1/executions/"+executionID.String()+"/approve", uuid.New(), map[string]string{"id": executionID.String()})
	resp := httptest.NewRecorder()
	ApproveExecution(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestApproveExecutionDeclineDecision(t *testing.T) {
	executionID := uuid.New()
	userID := uuid.New()
	svc := &stubExecutionsService{
		execution: &executions.ExecutionDTO{ID: executionID, UserID: userID, Status: enums.ExecutionStatusFailed},
	}

	req := authedRequest(http.MethodPost, "/api/v1/executions/"+executionID.String()+"/approve", userID, map[string]string{"id": executionID.String()})
	req.Body = io.NopCloser(strings.NewReader(`{"decision":"decline"}`))
	req.ContentLength = int64(len(`{"decision":"decline"}`))
	resp := httptest.NewRecorder()
	ApproveExecution(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.declined) != 1 || svc.declined[0] != executionID {
		t.Fatalf("expected decline call for %s got %v", executionID, svc.declined)
	}
	if len(svc.approved) != 0 {
		t.Fatal("approve must not be called on a decline")
	}
}

func TestApproveExecutionPassesSelectedProducts(t *testing.T) {
	executionID := uuid.New()
	userID := uuid.New()
	productID := uuid.New()
	svc := &stubExecutionsService{
		execution: &executions.ExecutionDTO{ID: executionID, UserID: userID, Status: enums.ExecutionStatusApproved},
	}

	body := `{"decision":"approve","selected_product_ids":["` + productID.String() + `"]}`
	req := authedRequest(http.MethodPost, "/api/v1/executions/"+executionID.String()+"/approve", userID, map[string]string{"id": executionID.String()})
	req.Body = io.NopCloser(strings.NewReader(body))
	req.ContentLength = int64(len(body))
	resp := httptest.NewRecorder()
	ApproveExecution(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.keep) != 1 || svc.keep[0] != productID {
		t.Fatalf("expected selected product ids forwarded, got %v", svc.keep)
	}
}
