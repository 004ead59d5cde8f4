package models

import (
	"time"

	"github.com/google/uuid"
)

// GiftEvent is a detected occasion occurrence that should trigger an
// execution. Rows are immutable once consumed; ConsumedAt is set exactly once
// by the orchestrator's conditional update.
type GiftEvent struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RuleID       uuid.UUID  `gorm:"column:rule_id;type:uuid;not null;uniqueIndex:gift_events_rule_occasion_key"`
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:gift_events_user_id_idx"`
	OccasionDate time.Time  `gorm:"column:occasion_date;type:date;not null;uniqueIndex:gift_events_rule_occasion_key"`
	ConsumedAt   *time.Time `gorm:"column:consumed_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}
