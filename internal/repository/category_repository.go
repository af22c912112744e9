package repository

import (
	"context"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CategoryRepository manages complaint category persistence.
type CategoryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

type categoryRepository struct {
	q Querier
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(q Querier) CategoryRepository {
	return &categoryRepository{q: q}
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
        SELECT id, name, description, default_department_id, sort_order, created_at, updated_at
        FROM complaint_categories WHERE id=$1`
	var category domain.Category
	if err := r.q.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.DefaultDepartmentID,
		&category.SortOrder,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	const query = `
        SELECT id, name, description, default_department_id, sort_order, created_at, updated_at
        FROM complaint_categories ORDER BY sort_order ASC`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.DefaultDepartmentID,
			&category.SortOrder,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}
