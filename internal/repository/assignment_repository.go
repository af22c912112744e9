package repository

import (
	"context"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// AssignmentRepository stores the append-only assignment ledger.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) error
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.Assignment, error)
}

type assignmentRepository struct {
	q Querier
}

// NewAssignmentRepository builds the repository.
func NewAssignmentRepository(q Querier) AssignmentRepository {
	return &assignmentRepository{q: q}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) error {
	const query = `
        INSERT INTO complaint_assignments (complaint_id, previous_assignee_id, new_assignee_id,
            previous_department_id, new_department_id, assigned_by_id, reason)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		assignment.ComplaintID,
		assignment.PreviousAssigneeID,
		assignment.NewAssigneeID,
		assignment.PreviousDepartmentID,
		assignment.NewDepartmentID,
		assignment.AssignedByID,
		assignment.Reason,
	).Scan(&assignment.ID, &assignment.CreatedAt)
}

func (r *assignmentRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.Assignment, error) {
	const query = `
        SELECT id, complaint_id, previous_assignee_id, new_assignee_id,
               previous_department_id, new_department_id, assigned_by_id, reason, created_at
        FROM complaint_assignments WHERE complaint_id=$1 ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		var assignment domain.Assignment
		if err := rows.Scan(
			&assignment.ID,
			&assignment.ComplaintID,
			&assignment.PreviousAssigneeID,
			&assignment.NewAssigneeID,
			&assignment.PreviousDepartmentID,
			&assignment.NewDepartmentID,
			&assignment.AssignedByID,
			&assignment.Reason,
			&assignment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}
	return result, rows.Err()
}
