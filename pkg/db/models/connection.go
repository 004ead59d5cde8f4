package models

import (
	"time"

	"github.com/google/uuid"
)

// Connection links two users in the social graph. Rows are directional; an
// accepted friendship has one row per direction.
type Connection struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:connections_user_id_idx;uniqueIndex:connections_user_friend_key"`
	ConnectionID uuid.UUID `gorm:"column:connection_id;type:uuid;not null;uniqueIndex:connections_user_friend_key"`
	Status       string    `gorm:"column:status;type:text;not null;default:'accepted'"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
