package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// NotificationResponse serializes a notification.
type NotificationResponse struct {
	ID          string     `json:"id"`
	ComplaintID string     `json:"complaint_id"`
	Type        string     `json:"type"`
	Channel     string     `json:"channel"`
	Subject     string     `json:"subject"`
	Message     string     `json:"message"`
	Status      string     `json:"status"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewNotificationResponses maps a slice of notifications.
func NewNotificationResponses(notifications []domain.Notification) []NotificationResponse {
	result := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		result = append(result, NotificationResponse{
			ID:          notification.ID,
			ComplaintID: notification.ComplaintID,
			Type:        string(notification.Type),
			Channel:     string(notification.Channel),
			Subject:     notification.Subject,
			Message:     notification.Message,
			Status:      string(notification.Status),
			SentAt:      notification.SentAt,
			ReadAt:      notification.ReadAt,
			CreatedAt:   notification.CreatedAt,
		})
	}
	return result
}
