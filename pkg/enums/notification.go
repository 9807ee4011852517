package enums

import "fmt"

// NotificationType categorises in-app notifications.
type NotificationType string

const (
	NotificationTypeAdmissions   NotificationType = "admissions"
	NotificationTypeFinance      NotificationType = "finance"
	NotificationTypeAccount      NotificationType = "account"
	NotificationTypeRegistration NotificationType = "registration"
	NotificationTypeSystem       NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeAdmissions,
	NotificationTypeFinance,
	NotificationTypeAccount,
	NotificationTypeRegistration,
	NotificationTypeSystem,
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
