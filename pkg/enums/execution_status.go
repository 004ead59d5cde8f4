package enums

import "fmt"

// ExecutionStatus maps to the execution_status enum in Postgres and is the
// canonical state machine for gift executions.
type ExecutionStatus string

const (
	ExecutionStatusProcessing      ExecutionStatus = "processing"
	ExecutionStatusPendingApproval ExecutionStatus = "pending_approval"
	ExecutionStatusApproved        ExecutionStatus = "approved"
	ExecutionStatusCompleted       ExecutionStatus = "completed"
	ExecutionStatusFailed          ExecutionStatus = "failed"
)

var validExecutionStatuses = []ExecutionStatus{
	ExecutionStatusProcessing,
	ExecutionStatusPendingApproval,
	ExecutionStatusApproved,
	ExecutionStatusCompleted,
	ExecutionStatusFailed,
}

// allowedExecutionTransitions encodes the forward edges of the state machine.
// failed is reachable from every non-terminal state.
var allowedExecutionTransitions = map[ExecutionStatus][]ExecutionStatus{
	ExecutionStatusProcessing:      {ExecutionStatusPendingApproval, ExecutionStatusFailed},
	ExecutionStatusPendingApproval: {ExecutionStatusApproved, ExecutionStatusFailed},
	ExecutionStatusApproved:        {ExecutionStatusCompleted, ExecutionStatusFailed},
}

// IsValid checks whether the status matches the canonical enum.
func (s ExecutionStatus) IsValid() bool {
	for _, candidate := range validExecutionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// CanTransitionTo reports whether the state machine permits the edge.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	for _, candidate := range allowedExecutionTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseExecutionStatus converts raw strings into ExecutionStatus.
func ParseExecutionStatus(value string) (ExecutionStatus, error) {
	for _, candidate := range validExecutionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid execution status %q", value)
}
