package models

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GiftSettings holds per-user defaults applied when a rule omits a value.
// The spend counters only grow within a period; the cron rollover job is the
// sole writer allowed to reset them.
type GiftSettings struct {
	UserID             uuid.UUID        `gorm:"column:user_id;type:uuid;primaryKey"`
	DefaultBudgetLimit decimal.Decimal  `gorm:"column:default_budget_limit;type:numeric(10,2);not null"`
	AutoApproveGifts   bool             `gorm:"column:auto_approve_gifts;not null;default:false"`
	DefaultGiftSource  enums.GiftSource `gorm:"column:default_gift_source;type:gift_source;not null;default:'wishlist'"`
	EmailNotifications bool             `gorm:"column:email_notifications;not null;default:true"`
	PushNotifications  bool             `gorm:"column:push_notifications;not null;default:true"`
	SpentThisMonth     decimal.Decimal  `gorm:"column:spent_this_month;type:numeric(10,2);not null;default:0"`
	SpentThisYear      decimal.Decimal  `gorm:"column:spent_this_year;type:numeric(10,2);not null;default:0"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
