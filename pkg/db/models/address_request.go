package models

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
)

// AddressRequest is a single-use, time-boxed capability token letting a
// recipient submit a shipping address without an account. CollectedAt is set
// exactly once, guarded by the collected_at IS NULL predicate at update time.
type AddressRequest struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Token           string         `gorm:"column:token;type:text;not null;uniqueIndex:address_requests_token_key"`
	ExecutionID     uuid.UUID      `gorm:"column:execution_id;type:uuid;not null;index:address_requests_execution_id_idx"`
	RequestedBy     uuid.UUID      `gorm:"column:requested_by;type:uuid;not null"`
	RecipientEmail  string         `gorm:"column:recipient_email;type:text;not null"`
	ShippingAddress *types.Address `gorm:"column:shipping_address;type:jsonb"`
	ExpiresAt       time.Time      `gorm:"column:expires_at;not null"`
	CollectedAt     *time.Time     `gorm:"column:collected_at"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
}
