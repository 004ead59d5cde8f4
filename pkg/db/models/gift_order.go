package models

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
)

// GiftOrder is the materialized result of an approved execution. The unique
// execution_id index is the local half of the duplicate-order guard; the
// payment collaborator's idempotency key is the remote half.
type GiftOrder struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index:gift_orders_user_id_idx"`
	RecipientID     uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null"`
	ExecutionID     *uuid.UUID             `gorm:"column:execution_id;type:uuid;uniqueIndex:gift_orders_execution_id_key"`
	Status          enums.OrderStatus      `gorm:"column:status;type:order_status;not null;default:'pending'"`
	IsGift          bool                   `gorm:"column:is_gift;not null"`
	Items           types.SelectedProducts `gorm:"column:items;type:jsonb"`
	TotalCents      int                    `gorm:"column:total_cents;not null"`
	ShippingAddress types.Address          `gorm:"column:shipping_address;type:jsonb"`
	PaymentRef      *string                `gorm:"column:payment_ref;type:text"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
