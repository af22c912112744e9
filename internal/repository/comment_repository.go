package repository

import (
	"context"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CommentRepository stores complaint thread comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByComplaint(ctx context.Context, complaintID string, includeInternal bool) ([]domain.Comment, error)
}

type commentRepository struct {
	q Querier
}

// NewCommentRepository builds the repository.
func NewCommentRepository(q Querier) CommentRepository {
	return &commentRepository{q: q}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO complaint_comments (complaint_id, author_id, author_type, body, internal_flag)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		comment.ComplaintID,
		comment.AuthorID,
		comment.AuthorType,
		comment.Body,
		comment.Internal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByComplaint(ctx context.Context, complaintID string, includeInternal bool) ([]domain.Comment, error) {
	query := `
        SELECT id, complaint_id, author_id, author_type, body, internal_flag, created_at
        FROM complaint_comments WHERE complaint_id=$1`
	if !includeInternal {
		query += ` AND internal_flag = FALSE`
	}
	query += ` ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.ComplaintID,
			&comment.AuthorID,
			&comment.AuthorType,
			&comment.Body,
			&comment.Internal,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
