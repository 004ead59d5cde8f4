package models

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
)

// GiftExecution is one attempt to fulfill a rule for a specific occasion
// occurrence. Status follows the execution_status state machine; completed
// and failed rows never change again.
type GiftExecution struct {
	ID                      uuid.UUID                      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                  uuid.UUID                      `gorm:"column:user_id;type:uuid;not null;index:gift_executions_user_id_idx"`
	RuleID                  uuid.UUID                      `gorm:"column:rule_id;type:uuid;not null;index:gift_executions_rule_id_idx"`
	EventID                 uuid.UUID                      `gorm:"column:event_id;type:uuid;not null;uniqueIndex:gift_executions_event_id_key"`
	Status                  enums.ExecutionStatus          `gorm:"column:status;type:execution_status;not null;default:'processing'"`
	SelectedProducts        types.SelectedProducts         `gorm:"column:selected_products;type:jsonb"`
	TotalCents              int                            `gorm:"column:total_cents;not null;default:0"`
	ErrorMessage            *string                        `gorm:"column:error_message;type:text"`
	AddressCollectionStatus *enums.AddressCollectionStatus `gorm:"column:address_collection_status;type:address_collection_status"`
	OrderID                 *uuid.UUID                     `gorm:"column:order_id;type:uuid"`
	CreatedAt               time.Time                      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time                      `gorm:"column:updated_at;autoUpdateTime"`
}
