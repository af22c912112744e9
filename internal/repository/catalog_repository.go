package repository

import (
	"context"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CatalogRepository loads the read-only reference tables: states, priorities
// and transition rules. Complaint operations never mutate these.
type CatalogRepository interface {
	ListStates(ctx context.Context) ([]domain.State, error)
	ListPriorities(ctx context.Context) ([]domain.Priority, error)
	ListActiveTransitionRules(ctx context.Context) ([]domain.TransitionRule, error)
}

type catalogRepository struct {
	q Querier
}

// NewCatalogRepository instantiates the repository.
func NewCatalogRepository(q Querier) CatalogRepository {
	return &catalogRepository{q: q}
}

func (r *catalogRepository) ListStates(ctx context.Context) ([]domain.State, error) {
	const query = `
        SELECT code, name, description, is_initial, is_final, sort_order, created_at, updated_at
        FROM complaint_states ORDER BY sort_order ASC`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.State
	for rows.Next() {
		var state domain.State
		if err := rows.Scan(
			&state.Code,
			&state.Name,
			&state.Description,
			&state.IsInitial,
			&state.IsFinal,
			&state.SortOrder,
			&state.CreatedAt,
			&state.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, state)
	}
	return result, rows.Err()
}

func (r *catalogRepository) ListPriorities(ctx context.Context) ([]domain.Priority, error) {
	const query = `
        SELECT code, name, sla_hours, sort_order, created_at, updated_at
        FROM complaint_priorities ORDER BY sort_order ASC`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Priority
	for rows.Next() {
		var priority domain.Priority
		if err := rows.Scan(
			&priority.Code,
			&priority.Name,
			&priority.SlaHours,
			&priority.SortOrder,
			&priority.CreatedAt,
			&priority.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, priority)
	}
	return result, rows.Err()
}

func (r *catalogRepository) ListActiveTransitionRules(ctx context.Context) ([]domain.TransitionRule, error) {
	const query = `
        SELECT id, from_state, to_state, name, requires_reason, requires_assignee, admin_only, active, created_at, updated_at
        FROM transition_rules WHERE active = TRUE`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TransitionRule
	for rows.Next() {
		var rule domain.TransitionRule
		if err := rows.Scan(
			&rule.ID,
			&rule.FromState,
			&rule.ToState,
			&rule.Name,
			&rule.RequiresReason,
			&rule.RequiresAssignee,
			&rule.AdminOnly,
			&rule.Active,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
