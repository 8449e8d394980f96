package models

import "time"

// NotificationKind distinguishes notification records on the remote store
type NotificationKind string

const (
	NotificationKindItemDue NotificationKind = "item_due"
)

// DueNotification is one "item due soon" record. Delivery is at-least-once;
// the notifier dedupes per item id within a session.
type DueNotification struct {
	ID        string           `json:"id,omitempty"`
	Kind      NotificationKind `json:"kind"`
	ItemID    string           `json:"item_id"`
	UserID    string           `json:"user_id"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at,omitempty"`
}

// Notification preference bounds (hours of lead time before an item is due)
const (
	MinDueThresholdHours     = 1
	MaxDueThresholdHours     = 72
	DefaultDueThresholdHours = 24
)

// Preferences holds per-user notification settings
type Preferences struct {
	NotifyOnItemDue   bool `json:"notify_on_item_due"`
	DueThresholdHours int  `json:"due_threshold_hours"`
}

// Threshold returns the configured lead time clamped to the allowed range
func (p Preferences) Threshold() time.Duration {
	hours := p.DueThresholdHours
	if hours < MinDueThresholdHours {
		hours = DefaultDueThresholdHours
	}
	if hours > MaxDueThresholdHours {
		hours = MaxDueThresholdHours
	}
	return time.Duration(hours) * time.Hour
}
