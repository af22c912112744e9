package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// StateChangeRepository stores the append-only state transition ledger.
type StateChangeRepository interface {
	Create(ctx context.Context, change *domain.StateChange) error
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.StateChange, error)
	LatestByComplaint(ctx context.Context, complaintID string) (*domain.StateChange, error)
}

type stateChangeRepository struct {
	q Querier
}

// NewStateChangeRepository builds the repository.
func NewStateChangeRepository(q Querier) StateChangeRepository {
	return &stateChangeRepository{q: q}
}

func (r *stateChangeRepository) Create(ctx context.Context, change *domain.StateChange) error {
	const query = `
        INSERT INTO complaint_state_changes (complaint_id, previous_state, new_state, changed_by_id, reason, time_in_previous_state_seconds)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		change.ComplaintID,
		change.PreviousState,
		change.NewState,
		change.ChangedByID,
		change.Reason,
		int64(change.TimeInPreviousState.Seconds()),
	).Scan(&change.ID, &change.CreatedAt)
}

func (r *stateChangeRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.StateChange, error) {
	const query = `
        SELECT id, complaint_id, previous_state, new_state, changed_by_id, reason, time_in_previous_state_seconds, created_at
        FROM complaint_state_changes WHERE complaint_id=$1 ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StateChange
	for rows.Next() {
		change, err := scanStateChange(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *change)
	}
	return result, rows.Err()
}

func (r *stateChangeRepository) LatestByComplaint(ctx context.Context, complaintID string) (*domain.StateChange, error) {
	const query = `
        SELECT id, complaint_id, previous_state, new_state, changed_by_id, reason, time_in_previous_state_seconds, created_at
        FROM complaint_state_changes WHERE complaint_id=$1 ORDER BY created_at DESC LIMIT 1`
	rows, err := r.q.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	return scanStateChange(rows)
}

func scanStateChange(row rowScanner) (*domain.StateChange, error) {
	var change domain.StateChange
	var seconds int64
	if err := row.Scan(
		&change.ID,
		&change.ComplaintID,
		&change.PreviousState,
		&change.NewState,
		&change.ChangedByID,
		&change.Reason,
		&seconds,
		&change.CreatedAt,
	); err != nil {
		return nil, err
	}
	change.TimeInPreviousState = time.Duration(seconds) * time.Second
	return &change, nil
}
