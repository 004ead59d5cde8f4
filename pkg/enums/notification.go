package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeGiftCompleted    NotificationType = "gift_completed"
	NotificationTypeGiftFailed       NotificationType = "gift_failed"
	NotificationTypeApprovalNeeded   NotificationType = "approval_needed"
	NotificationTypeAddressRequested NotificationType = "address_requested"
	NotificationTypeNudgeSent        NotificationType = "nudge_sent"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeGiftCompleted,
	NotificationTypeGiftFailed,
	NotificationTypeApprovalNeeded,
	NotificationTypeAddressRequested,
	NotificationTypeNudgeSent,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
