package model

import "time"

// NotificationKind identifies one transactional notification type.
type NotificationKind string

// Notification kinds dispatched by the delivery engine.
const (
	NotifyVerification    NotificationKind = "verification"
	NotifyPasswordReset   NotificationKind = "password_reset"
	NotifyPasswordChanged NotificationKind = "password_changed"
	NotifyUnverifiedWarn  NotificationKind = "unverified_warning"
	NotifyAccountDeletion NotificationKind = "account_deletion"
)

// ValidNotificationKinds contains all dispatchable kinds.
var ValidNotificationKinds = []NotificationKind{
	NotifyVerification,
	NotifyPasswordReset,
	NotifyPasswordChanged,
	NotifyUnverifiedWarn,
	NotifyAccountDeletion,
}

// Delivery attempt statuses. One audit record is written per attempt
// outcome; records are append-only and never mutated.
const (
	DeliverySent        = "sent"
	DeliveryRateLimited = "rate_limited"
	DeliveryFailed      = "failed"
)

// DeliveryAttempt is one append-only audit record for a dispatch attempt.
type DeliveryAttempt struct {
	ID                string           `json:"id"`
	Kind              NotificationKind `json:"notification_type"`
	Recipient         string           `json:"recipient"`
	Status            string           `json:"status"`
	ProviderMessageID string           `json:"provider_message_id,omitempty"`
	ErrorMessage      string           `json:"error_message,omitempty"`
	AttemptNumber     int              `json:"attempt_number"`
	CreatedAt         time.Time        `json:"created_at"`
}

// AbuseWindow is the fixed window for per-recipient notification caps.
const AbuseWindow = time.Hour

// DefaultAbuseLimits caps how many notifications of each kind may be
// triggered per recipient per hour. Injected into the limiter at
// construction so tests can use alternate tables.
var DefaultAbuseLimits = map[NotificationKind]int{
	NotifyVerification:    5,
	NotifyPasswordReset:   3,
	NotifyPasswordChanged: 3,
	NotifyUnverifiedWarn:  2,
	NotifyAccountDeletion: 3,
}
