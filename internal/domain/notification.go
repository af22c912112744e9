package domain

import "time"

// NotificationType enumerates lifecycle events that produce notifications.
type NotificationType string

const (
	NotifyStateChanged    NotificationType = "STATE_CHANGED"
	NotifyAssigned        NotificationType = "ASSIGNED"
	NotifyReassigned      NotificationType = "REASSIGNED"
	NotifyNewComment      NotificationType = "NEW_COMMENT"
	NotifyPriorityChanged NotificationType = "PRIORITY_CHANGED"
	NotifySlaBreached     NotificationType = "SLA_BREACHED"
	NotifySlaApproaching  NotificationType = "SLA_APPROACHING"
)

// NotificationChannel identifies the delivery medium.
type NotificationChannel string

const (
	ChannelWeb   NotificationChannel = "WEB"
	ChannelEmail NotificationChannel = "EMAIL"
)

// NotificationStatus tracks the delivery lifecycle.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationSent    NotificationStatus = "SENT"
	NotificationFailed  NotificationStatus = "FAILED"
	NotificationRead    NotificationStatus = "READ"
)

// Notification is one message produced for a recipient by a lifecycle event.
// Attempts/MaxAttempts mirror the stored schema; delivery is single-attempt
// and no retry loop consumes MaxAttempts.
type Notification struct {
	ID           string
	RecipientID  string
	ComplaintID  string
	Type         NotificationType
	Channel      NotificationChannel
	Subject      string
	Message      string
	Status       NotificationStatus
	Attempts     int
	MaxAttempts  int
	ErrorMessage *string
	SentAt       *time.Time
	ReadAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
