package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRepos bundles the repositories that participate in one transaction.
type TxRepos struct {
	Complaints  ComplaintRepository
	StateLog    StateChangeRepository
	Assignments AssignmentRepository
}

// UnitOfWork runs a function with transaction-scoped repositories. The
// callback's writes commit together or not at all.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos TxRepos) error) error
}

type pgxUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork builds a pgx-backed unit of work.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgxUnitOfWork{pool: pool}
}

func (u *pgxUnitOfWork) Execute(ctx context.Context, fn func(repos TxRepos) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}
	repos := TxRepos{
		Complaints:  NewComplaintRepository(tx),
		StateLog:    NewStateChangeRepository(tx),
		Assignments: NewAssignmentRepository(tx),
	}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
