package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/pkg/util"
)

// Sender delivers a single notification over its channel.
type Sender interface {
	Send(ctx context.Context, notification *domain.Notification) error
}

// LogSender writes deliveries to the log. It stands in for real email and
// push integrations in development.
type LogSender struct {
	logger *zap.Logger
	from   string
}

// NewLogSender builds a logging sender.
func NewLogSender(logger *zap.Logger, from string) *LogSender {
	return &LogSender{logger: logger, from: from}
}

// Send logs the outgoing notification.
func (s *LogSender) Send(ctx context.Context, notification *domain.Notification) error {
	s.logger.Info("notification delivered",
		zap.String("notification_id", notification.ID),
		zap.String("recipient_id", notification.RecipientID),
		zap.String("channel", string(notification.Channel)),
		zap.String("type", string(notification.Type)),
		zap.String("from", s.from),
		zap.String("subject", notification.Subject))
	return nil
}

// NotificationService turns domain events into per-recipient notifications
// and drains the pending queue.
type NotificationService struct {
	notifications repository.NotificationRepository
	staff         repository.StaffRepository
	dispatcher    events.Dispatcher
	sender        Sender
	logger        *zap.Logger
	cfg           config.NotificationConfig
	now           func() time.Time
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	StaffRepo        repository.StaffRepository
	Dispatcher       events.Dispatcher
	Sender           Sender
	Logger           *zap.Logger
	Config           config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: deps.NotificationRepo,
		staff:         deps.StaffRepo,
		dispatcher:    deps.Dispatcher,
		sender:        deps.Sender,
		logger:        logger,
		cfg:           deps.Config,
		now:           time.Now,
	}
}

// RegisterHandlers subscribes to every lifecycle event that produces
// notifications.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintCreated, n.handleCreated)
	n.dispatcher.Subscribe(events.EventComplaintStateChanged, n.handleStateChanged)
	n.dispatcher.Subscribe(events.EventComplaintPriorityChanged, n.handlePriorityChanged)
	n.dispatcher.Subscribe(events.EventComplaintAssigned, n.handleAssigned)
	n.dispatcher.Subscribe(events.EventComplaintCommentAdded, n.handleCommentAdded)
	n.dispatcher.Subscribe(events.EventComplaintSlaBreached, n.handleSlaBreached)
	n.dispatcher.Subscribe(events.EventComplaintSlaApproaching, n.handleSlaApproaching)
}

func (n *NotificationService) handleCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintCreatedPayload)
	if !ok {
		return nil
	}
	return n.enqueue(ctx, event.ComplaintID, payload.CitizenID, domain.ChannelEmail, domain.NotifyStateChanged,
		fmt.Sprintf("Complaint %s registered", payload.Code),
		fmt.Sprintf("Your complaint %q was registered under code %s.", payload.Title, payload.Code))
}

func (n *NotificationService) handleStateChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintStateChangedPayload)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("Complaint %s moved to %s", payload.Code, payload.NewState)
	message := fmt.Sprintf("Complaint %s changed from %s to %s.", payload.Code, payload.PreviousState, payload.NewState)
	if payload.Reason != "" {
		message += " Reason: " + payload.Reason
	}

	if err := n.enqueue(ctx, event.ComplaintID, payload.CitizenID, domain.ChannelEmail, domain.NotifyStateChanged, subject, message); err != nil {
		return err
	}
	if payload.AssigneeID != nil && !actorIs(event.Actor, *payload.AssigneeID) {
		return n.enqueue(ctx, event.ComplaintID, *payload.AssigneeID, domain.ChannelWeb, domain.NotifyStateChanged, subject, message)
	}
	return nil
}

func (n *NotificationService) handlePriorityChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintPriorityChangedPayload)
	if !ok || payload.AssigneeID == nil {
		return nil
	}
	return n.enqueue(ctx, event.ComplaintID, *payload.AssigneeID, domain.ChannelWeb, domain.NotifyPriorityChanged,
		fmt.Sprintf("Complaint %s priority is now %s", payload.Code, payload.NewPriority),
		fmt.Sprintf("Priority changed from %s to %s. The SLA deadline was recomputed.", payload.PreviousPriority, payload.NewPriority))
}

func (n *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintAssignedPayload)
	if !ok {
		return nil
	}
	notifType := domain.NotifyAssigned
	subject := fmt.Sprintf("Complaint %s assigned to you", payload.Code)
	if payload.Reassignment {
		notifType = domain.NotifyReassigned
		subject = fmt.Sprintf("Complaint %s reassigned to you", payload.Code)
	}
	return n.enqueue(ctx, event.ComplaintID, payload.NewAssigneeID, domain.ChannelWeb, notifType, subject,
		fmt.Sprintf("You are now responsible for complaint %s.", payload.Code))
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintCommentAddedPayload)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("New comment on complaint %s", payload.Code)

	// Internal notes never reach the citizen.
	if payload.Internal {
		if payload.AssigneeID != nil && *payload.AssigneeID != payload.AuthorID {
			return n.enqueue(ctx, event.ComplaintID, *payload.AssigneeID, domain.ChannelWeb, domain.NotifyNewComment, subject,
				fmt.Sprintf("An internal note was added to complaint %s.", payload.Code))
		}
		return nil
	}

	if payload.AuthorType == domain.SubjectTypeStaff {
		return n.enqueue(ctx, event.ComplaintID, payload.CitizenID, domain.ChannelEmail, domain.NotifyNewComment, subject,
			fmt.Sprintf("Staff replied on complaint %s.", payload.Code))
	}
	if payload.AssigneeID != nil {
		return n.enqueue(ctx, event.ComplaintID, *payload.AssigneeID, domain.ChannelWeb, domain.NotifyNewComment, subject,
			fmt.Sprintf("The citizen commented on complaint %s.", payload.Code))
	}
	return nil
}

func (n *NotificationService) handleSlaBreached(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintSlaPayload)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("SLA breached for complaint %s", payload.Code)
	message := fmt.Sprintf("Complaint %s passed its SLA deadline.", payload.Code)
	if payload.Deadline != nil {
		message = fmt.Sprintf("Complaint %s passed its SLA deadline of %s.", payload.Code, payload.Deadline.Format(time.RFC3339))
	}

	if payload.AssigneeID != nil {
		if err := n.enqueue(ctx, event.ComplaintID, *payload.AssigneeID, domain.ChannelWeb, domain.NotifySlaBreached, subject, message); err != nil {
			return err
		}
	}
	return n.notifySupervisors(ctx, event.ComplaintID, payload, domain.NotifySlaBreached, subject, message)
}

func (n *NotificationService) handleSlaApproaching(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintSlaPayload)
	if !ok || payload.AssigneeID == nil {
		return nil
	}
	message := fmt.Sprintf("Complaint %s is approaching its SLA deadline.", payload.Code)
	if payload.Deadline != nil {
		message = fmt.Sprintf("Complaint %s must be resolved by %s.", payload.Code, payload.Deadline.Format(time.RFC3339))
	}
	return n.enqueue(ctx, event.ComplaintID, *payload.AssigneeID, domain.ChannelWeb, domain.NotifySlaApproaching,
		fmt.Sprintf("SLA deadline approaching for complaint %s", payload.Code), message)
}

// notifySupervisors fans the message out to the active supervisors of the
// complaint's department, skipping the assignee who was already notified.
func (n *NotificationService) notifySupervisors(ctx context.Context, complaintID string, payload events.ComplaintSlaPayload, notifType domain.NotificationType, subject, message string) error {
	if payload.DepartmentID == nil {
		return nil
	}
	active := true
	role := domain.StaffRoleSupervisor
	supervisors, err := n.staff.List(ctx, repository.StaffFilter{
		Role:         &role,
		DepartmentID: payload.DepartmentID,
		Active:       &active,
		Limit:        100,
	})
	if err != nil {
		return err
	}
	for _, supervisor := range supervisors {
		if payload.AssigneeID != nil && supervisor.ID == *payload.AssigneeID {
			continue
		}
		if err := n.enqueue(ctx, complaintID, supervisor.ID, domain.ChannelWeb, notifType, subject, message); err != nil {
			return err
		}
	}
	return nil
}

func (n *NotificationService) enqueue(ctx context.Context, complaintID, recipientID string, channel domain.NotificationChannel, notifType domain.NotificationType, subject, message string) error {
	notification := &domain.Notification{
		RecipientID: recipientID,
		ComplaintID: complaintID,
		Type:        notifType,
		Channel:     channel,
		Subject:     subject,
		Message:     message,
		Status:      domain.NotificationPending,
		MaxAttempts: n.cfg.DefaultMaxAttempts,
	}
	return n.notifications.Create(ctx, notification)
}

// Deliver drains up to batchSize pending notifications. Each notification is
// attempted once: a send failure marks it FAILED and the queue moves on.
func (n *NotificationService) Deliver(ctx context.Context, batchSize int) (int, error) {
	pending, err := n.notifications.ListPending(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range pending {
		notification := &pending[i]
		notification.Attempts++
		if err := n.sender.Send(ctx, notification); err != nil {
			msg := util.NewDeliveryFailure(err).Error()
			notification.Status = domain.NotificationFailed
			notification.ErrorMessage = &msg
			n.logger.Warn("notification delivery failed",
				zap.String("notification_id", notification.ID),
				zap.String("recipient_id", notification.RecipientID),
				zap.Error(err))
		} else {
			sentAt := n.now().UTC()
			notification.Status = domain.NotificationSent
			notification.SentAt = &sentAt
			delivered++
		}
		if err := n.notifications.Update(ctx, notification); err != nil {
			return delivered, err
		}
	}
	return delivered, nil
}

// ListForRecipient returns a recipient's notifications, newest first.
func (n *NotificationService) ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	return n.notifications.ListByRecipient(ctx, recipientID, unreadOnly, limit, offset)
}

// MarkRead marks one notification read for its recipient.
func (n *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	return n.notifications.MarkRead(ctx, id, recipientID)
}

// MarkAllRead marks every unread notification read for the recipient.
func (n *NotificationService) MarkAllRead(ctx context.Context, recipientID string) error {
	return n.notifications.MarkAllRead(ctx, recipientID)
}

func actorIs(actor events.Actor, staffID string) bool {
	return actor.StaffID != nil && *actor.StaffID == staffID
}
