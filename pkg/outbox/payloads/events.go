package payloads

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	"github.com/google/uuid"
)

// ExecutionStartedEvent signals that a trigger event was consumed and an
// execution row created.
type ExecutionStartedEvent struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	RuleID      uuid.UUID `json:"rule_id"`
	EventID     uuid.UUID `json:"event_id"`
	UserID      uuid.UUID `json:"user_id"`
}

// ExecutionStateChangedEvent is emitted on every status transition.
type ExecutionStateChangedEvent struct {
	ExecutionID uuid.UUID             `json:"execution_id"`
	RuleID      uuid.UUID             `json:"rule_id"`
	FromStatus  enums.ExecutionStatus `json:"from_status"`
	ToStatus    enums.ExecutionStatus `json:"to_status"`
}

// ExecutionFailedEvent carries the terminal failure reason.
type ExecutionFailedEvent struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	RuleID      uuid.UUID `json:"rule_id"`
	UserID      uuid.UUID `json:"user_id"`
	Reason      string    `json:"reason"`
}

// ExecutionCompletedEvent is emitted once an order is placed and the
// execution reaches its terminal success state.
type ExecutionCompletedEvent struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	RuleID      uuid.UUID `json:"rule_id"`
	UserID      uuid.UUID `json:"user_id"`
	OrderID     uuid.UUID `json:"order_id"`
	TotalCents  int       `json:"total_cents"`
}

// GiftOrderCreatedEvent signals a materialized order.
type GiftOrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	ExecutionID uuid.UUID `json:"execution_id"`
	UserID      uuid.UUID `json:"user_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	TotalCents  int       `json:"total_cents"`
}

// AddressRequestIssuedEvent is emitted when a capability link is generated.
type AddressRequestIssuedEvent struct {
	RequestID      uuid.UUID `json:"request_id"`
	ExecutionID    uuid.UUID `json:"execution_id"`
	RecipientEmail string    `json:"recipient_email"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// AddressCollectedEvent is emitted when the recipient submits an address.
type AddressCollectedEvent struct {
	RequestID   uuid.UUID `json:"request_id"`
	ExecutionID uuid.UUID `json:"execution_id"`
	CollectedAt time.Time `json:"collected_at"`
}

// NudgeSentEvent records a data-repair nudge dispatch.
type NudgeSentEvent struct {
	NudgeID      uuid.UUID `json:"nudge_id"`
	UserID       uuid.UUID `json:"user_id"`
	ConnectionID uuid.UUID `json:"connection_id"`
	Channel      string    `json:"channel"`
	AIGenerated  bool      `json:"ai_generated"`
	SentAt       time.Time `json:"sent_at"`
}

// NotificationRequestedEvent tells downstream systems to alert a user.
type NotificationRequestedEvent struct {
	UserID uuid.UUID              `json:"user_id"`
	Type   enums.NotificationType `json:"type"`
	Title  string                 `json:"title"`
	Link   string                 `json:"link,omitempty"`
}
