package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateExecution    OutboxAggregateType = "gift_execution"
	AggregateGiftOrder    OutboxAggregateType = "gift_order"
	AggregateGiftRule     OutboxAggregateType = "gift_rule"
	AggregateNudge        OutboxAggregateType = "connection_nudge"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateExecution,
	AggregateGiftOrder,
	AggregateGiftRule,
	AggregateNudge,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventExecutionStarted      OutboxEventType = "execution_started"
	EventExecutionStateChanged OutboxEventType = "execution_state_changed"
	EventExecutionFailed       OutboxEventType = "execution_failed"
	EventExecutionCompleted    OutboxEventType = "execution_completed"
	EventGiftOrderCreated      OutboxEventType = "gift_order_created"
	EventAddressRequestIssued  OutboxEventType = "address_request_issued"
	EventAddressCollected      OutboxEventType = "address_collected"
	EventNudgeSent             OutboxEventType = "nudge_sent"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventExecutionStarted,
	EventExecutionStateChanged,
	EventExecutionFailed,
	EventExecutionCompleted,
	EventGiftOrderCreated,
	EventAddressRequestIssued,
	EventAddressCollected,
	EventNudgeSent,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why a row was parked in the dead letter queue.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
}

func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validOutboxDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
