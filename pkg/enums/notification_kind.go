package enums

import "fmt"

// NotificationKind names the transactional email template to render.
type NotificationKind string

const (
	NotificationKindGuestOrder    NotificationKind = "guest_order"
	NotificationKindOrderStatus   NotificationKind = "order_status"
	NotificationKindPasswordSetup NotificationKind = "password_setup"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindGuestOrder,
	NotificationKindOrderStatus,
	NotificationKindPasswordSetup,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
