package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides query access and transaction scoping.
type Store struct {
	db   *pgxpool.Pool
	repo *Repository
}

// NewStore creates a store wrapper around a pgx connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		db:   db,
		repo: NewRepository(db),
	}
}

// Repo returns the non-transactional query set.
func (s *Store) Repo() *Repository {
	return s.repo
}

// RunInTx executes fn within a database transaction. Every effect applied
// through the passed Repository commits or rolls back as one unit.
func (s *Store) RunInTx(ctx context.Context, fn func(r *Repository) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(s.repo.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
