package models

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// GiftRule is a user's standing auto-gift instruction for one recipient and
// occasion pair. Exactly one of RecipientID or PendingRecipientEmail is set.
type GiftRule struct {
	ID                    uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index:gift_rules_user_id_idx"`
	RecipientID           *uuid.UUID       `gorm:"column:recipient_id;type:uuid;index:gift_rules_recipient_id_idx"`
	PendingRecipientEmail *string          `gorm:"column:pending_recipient_email;type:text"`
	DateType              enums.DateType   `gorm:"column:date_type;type:date_type;not null"`
	OccasionDate          *time.Time       `gorm:"column:occasion_date;type:date"`
	BudgetLimit           decimal.Decimal  `gorm:"column:budget_limit;type:numeric(10,2);not null"`
	GiftSource            enums.GiftSource `gorm:"column:gift_source;type:gift_source;not null;default:'wishlist'"`
	CategoryFilters       pq.StringArray   `gorm:"column:category_filters;type:text[]"`
	// no gorm-side defaults on the bool columns: a tag default makes gorm
	// drop false from the INSERT, so inactive rows could never be written
	NotifyEnabled  bool      `gorm:"column:notify_enabled;not null"`
	NotifyLeadDays int       `gorm:"column:notify_lead_days;not null;default:7"`
	IsActive       bool      `gorm:"column:is_active;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
