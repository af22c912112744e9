package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// NotificationRepository handles notification persistence.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	Update(ctx context.Context, notification *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListPending(ctx context.Context, limit int) ([]domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) error
}

const notificationColumns = `id, recipient_id, complaint_id, type, channel, subject, message,
           status, attempts, max_attempts, error_message, sent_at, read_at, created_at, updated_at`

type notificationRepository struct {
	q Querier
}

// NewNotificationRepository instantiates the repository.
func NewNotificationRepository(q Querier) NotificationRepository {
	return &notificationRepository{q: q}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_id, complaint_id, type, channel, subject, message, status, max_attempts)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, attempts, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		notification.RecipientID,
		notification.ComplaintID,
		notification.Type,
		notification.Channel,
		notification.Subject,
		notification.Message,
		notification.Status,
		notification.MaxAttempts,
	).Scan(&notification.ID, &notification.Attempts, &notification.CreatedAt, &notification.UpdatedAt)
}

func (r *notificationRepository) Update(ctx context.Context, notification *domain.Notification) error {
	const query = `
        UPDATE notifications SET status=$1, attempts=$2, error_message=$3, sent_at=$4, read_at=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.q.Exec(ctx, query,
		notification.Status,
		notification.Attempts,
		notification.ErrorMessage,
		notification.SentAt,
		notification.ReadAt,
		notification.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id=$1`
	var notification domain.Notification
	if err := scanNotification(r.q.QueryRow(ctx, query, id), &notification); err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) ListPending(ctx context.Context, limit int) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + `
        FROM notifications WHERE status=$1 ORDER BY created_at ASC LIMIT $2`
	rows, err := r.q.Query(ctx, query, domain.NotificationPending, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id=$1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	const query = `
        UPDATE notifications SET status=$1, read_at=NOW(), updated_at=NOW()
        WHERE id=$2 AND recipient_id=$3 AND read_at IS NULL`
	cmd, err := r.q.Exec(ctx, query, domain.NotificationRead, id, recipientID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	const query = `
        UPDATE notifications SET status=$1, read_at=NOW(), updated_at=NOW()
        WHERE recipient_id=$2 AND read_at IS NULL`
	_, err := r.q.Exec(ctx, query, domain.NotificationRead, recipientID)
	return err
}

func scanNotification(row rowScanner, notification *domain.Notification) error {
	return row.Scan(
		&notification.ID,
		&notification.RecipientID,
		&notification.ComplaintID,
		&notification.Type,
		&notification.Channel,
		&notification.Subject,
		&notification.Message,
		&notification.Status,
		&notification.Attempts,
		&notification.MaxAttempts,
		&notification.ErrorMessage,
		&notification.SentAt,
		&notification.ReadAt,
		&notification.CreatedAt,
		&notification.UpdatedAt,
	)
}

func scanNotifications(rows pgx.Rows) ([]domain.Notification, error) {
	var result []domain.Notification
	for rows.Next() {
		var notification domain.Notification
		if err := scanNotification(rows, &notification); err != nil {
			return nil, err
		}
		result = append(result, notification)
	}
	return result, rows.Err()
}
