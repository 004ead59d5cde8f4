package executions

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
)

// ExecutionDTO is the execution shape returned to API consumers.
type ExecutionDTO struct {
	ID                      uuid.UUID                      `json:"id"`
	UserID                  uuid.UUID                      `json:"user_id"`
	RuleID                  uuid.UUID                      `json:"rule_id"`
	EventID                 uuid.UUID                      `json:"event_id"`
	Status                  enums.ExecutionStatus          `json:"status"`
	SelectedProducts        types.SelectedProducts         `json:"selected_products,omitempty"`
	TotalCents              int                            `json:"total_cents"`
	ErrorMessage            *string                        `json:"error_message,omitempty"`
	AddressCollectionStatus *enums.AddressCollectionStatus `json:"address_collection_status,omitempty"`
	OrderID                 *uuid.UUID                     `json:"order_id,omitempty"`
	CreatedAt               time.Time                      `json:"created_at"`
	UpdatedAt               time.Time                      `json:"updated_at"`
}

// ExecutionPage carries a page of executions with a continuation cursor.
type ExecutionPage struct {
	Items      []models.GiftExecution `json:"items"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

func toExecutionDTO(execution models.GiftExecution) ExecutionDTO {
	return ExecutionDTO{
		ID:                      execution.ID,
		UserID:                  execution.UserID,
		RuleID:                  execution.RuleID,
		EventID:                 execution.EventID,
		Status:                  execution.Status,
		SelectedProducts:        execution.SelectedProducts,
		TotalCents:              execution.TotalCents,
		ErrorMessage:            execution.ErrorMessage,
		AddressCollectionStatus: execution.AddressCollectionStatus,
		OrderID:                 execution.OrderID,
		CreatedAt:               execution.CreatedAt,
		UpdatedAt:               execution.UpdatedAt,
	}
}
