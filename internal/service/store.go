package service

import (
	"context"

	"github.com/bitpal/wallet-service/internal/repository"
)

// QueryStore defines the minimal data access contract required by services.
type QueryStore interface {
	Repo() *repository.Repository
	RunInTx(ctx context.Context, fn func(r *repository.Repository) error) error
}
