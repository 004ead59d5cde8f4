package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ConnectionNudge records one data-repair nudge sent from a user to one of
// their connections. The rate limiter counts these rows; they are never
// updated after insert.
type ConnectionNudge struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index:connection_nudges_pair_idx"`
	ConnectionID uuid.UUID      `gorm:"column:connection_id;type:uuid;not null;index:connection_nudges_pair_idx"`
	Channel      string         `gorm:"column:channel;type:text;not null;default:'email'"`
	Subject      string         `gorm:"column:subject;type:text;not null"`
	Message      string         `gorm:"column:message;type:text;not null"`
	DataNeeded   pq.StringArray `gorm:"column:data_needed;type:text[]"`
	AIGenerated  bool           `gorm:"column:ai_generated;not null;default:false"`
	SentAt       time.Time      `gorm:"column:sent_at;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
}
