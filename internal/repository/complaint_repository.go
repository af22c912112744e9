package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// ComplaintFilter captures listing parameters.
type ComplaintFilter struct {
	CitizenID      *string
	DepartmentID   *string
	AssigneeID     *string
	DistrictID     *string
	States         []string
	Priorities     []string
	SearchTerm     *string
	Unassigned     bool
	RegisteredFrom *time.Time
	RegisteredTo   *time.Time
	Limit          int
	Offset         int
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	Update(ctx context.Context, complaint *domain.Complaint) error
	SoftDelete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	GetByCode(ctx context.Context, code string) (*domain.Complaint, error)
	ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	ListBreached(ctx context.Context, now time.Time, limit int) ([]domain.Complaint, error)
	ListApproaching(ctx context.Context, now time.Time, window time.Duration, limit int) ([]domain.Complaint, error)
	CountOpenByAssignee(ctx context.Context, assigneeID string) (int, error)
}

const complaintColumns = `id, code, citizen_id, assignee_id, department_id, category_id, district_id,
           priority_code, state_code, title, description, address, anonymous,
           registered_at, sla_deadline, breach_notified_at, approach_notified_at,
           closed_at, created_at, updated_at, deleted_at`

type complaintRepository struct {
	q Querier
}

// NewComplaintRepository instantiates the repository.
func NewComplaintRepository(q Querier) ComplaintRepository {
	return &complaintRepository{q: q}
}

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (code, citizen_id, assignee_id, department_id, category_id, district_id,
            priority_code, state_code, title, description, address, anonymous, registered_at, sla_deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		complaint.Code,
		complaint.CitizenID,
		complaint.AssigneeID,
		complaint.DepartmentID,
		complaint.CategoryID,
		complaint.DistrictID,
		complaint.PriorityCode,
		complaint.StateCode,
		complaint.Title,
		complaint.Description,
		complaint.Address,
		complaint.Anonymous,
		complaint.RegisteredAt,
		complaint.SlaDeadline,
	).Scan(&complaint.ID, &complaint.CreatedAt, &complaint.UpdatedAt)
}

func (r *complaintRepository) Update(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        UPDATE complaints SET assignee_id=$1, department_id=$2, priority_code=$3, state_code=$4,
            title=$5, description=$6, address=$7, sla_deadline=$8, breach_notified_at=$9,
            approach_notified_at=$10, closed_at=$11, updated_at=NOW()
        WHERE id=$12 AND deleted_at IS NULL`
	cmd, err := r.q.Exec(ctx, query,
		complaint.AssigneeID,
		complaint.DepartmentID,
		complaint.PriorityCode,
		complaint.StateCode,
		complaint.Title,
		complaint.Description,
		complaint.Address,
		complaint.SlaDeadline,
		complaint.BreachNotifiedAt,
		complaint.ApproachNotifiedAt,
		complaint.ClosedAt,
		complaint.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *complaintRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE complaints SET deleted_at=NOW(), updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`
	cmd, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE id=$1 AND deleted_at IS NULL`, complaintColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *complaintRepository) GetByCode(ctx context.Context, code string) (*domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE code=$1 AND deleted_at IS NULL`, complaintColumns)
	return r.fetchSingle(ctx, query, code)
}

func (r *complaintRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Complaint, error) {
	var complaint domain.Complaint
	if err := scanComplaint(r.q.QueryRow(ctx, query, arg), &complaint); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *complaintRepository) ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	base := fmt.Sprintf(`SELECT %s FROM complaints`, complaintColumns)
	clauses := []string{"deleted_at IS NULL"}
	args := []any{}

	if filter.CitizenID != nil {
		args = append(args, *filter.CitizenID)
		clauses = append(clauses, fmt.Sprintf("citizen_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.DistrictID != nil {
		args = append(args, *filter.DistrictID)
		clauses = append(clauses, fmt.Sprintf("district_id=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assignee_id IS NULL")
	}
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("state_code IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority_code IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RegisteredFrom != nil {
		args = append(args, *filter.RegisteredFrom)
		clauses = append(clauses, fmt.Sprintf("registered_at >= $%d", len(args)))
	}
	if filter.RegisteredTo != nil {
		args = append(args, *filter.RegisteredTo)
		clauses = append(clauses, fmt.Sprintf("registered_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(code) LIKE %s)", placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY registered_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) ListBreached(ctx context.Context, now time.Time, limit int) ([]domain.Complaint, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM complaints
        WHERE deleted_at IS NULL AND closed_at IS NULL
          AND sla_deadline IS NOT NULL AND sla_deadline < $1
          AND breach_notified_at IS NULL
        ORDER BY sla_deadline ASC LIMIT $2`, complaintColumns)
	rows, err := r.q.Query(ctx, query, now, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) ListApproaching(ctx context.Context, now time.Time, window time.Duration, limit int) ([]domain.Complaint, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM complaints
        WHERE deleted_at IS NULL AND closed_at IS NULL
          AND sla_deadline IS NOT NULL AND sla_deadline > $1 AND sla_deadline <= $2
          AND approach_notified_at IS NULL
        ORDER BY sla_deadline ASC LIMIT $3`, complaintColumns)
	rows, err := r.q.Query(ctx, query, now, now.Add(window), normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) CountOpenByAssignee(ctx context.Context, assigneeID string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM complaints
        WHERE deleted_at IS NULL AND closed_at IS NULL AND assignee_id=$1`
	var count int
	if err := r.q.QueryRow(ctx, query, assigneeID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 500
	}
	return limit
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner, complaint *domain.Complaint) error {
	return row.Scan(
		&complaint.ID,
		&complaint.Code,
		&complaint.CitizenID,
		&complaint.AssigneeID,
		&complaint.DepartmentID,
		&complaint.CategoryID,
		&complaint.DistrictID,
		&complaint.PriorityCode,
		&complaint.StateCode,
		&complaint.Title,
		&complaint.Description,
		&complaint.Address,
		&complaint.Anonymous,
		&complaint.RegisteredAt,
		&complaint.SlaDeadline,
		&complaint.BreachNotifiedAt,
		&complaint.ApproachNotifiedAt,
		&complaint.ClosedAt,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
		&complaint.DeletedAt,
	)
}

func scanComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for rows.Next() {
		var complaint domain.Complaint
		if err := scanComplaint(rows, &complaint); err != nil {
			return nil, err
		}
		result = append(result, complaint)
	}
	return result, rows.Err()
}
