package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/bitpal/wallet-service/internal/repository"
	"github.com/google/uuid"
)

// Transitions are forward-only: success and failed are absorbing states.
var transactionTransitions = map[string]map[string]struct{}{
	domain.TxStatusPending: {
		domain.TxStatusSuccess: {},
		domain.TxStatusFailed:  {},
	},
	domain.TxStatusSuccess: {},
	domain.TxStatusFailed:  {},
}

func canTransition(current, next string) bool {
	nextStates, ok := transactionTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

// settleTransaction moves a transaction into a terminal state under a row
// lock. Re-settling into the state the row already holds is a no-op, which
// is what makes replayed webhooks safe; any other transition out of a
// terminal state fails with ErrInvalidStateTransition.
func settleTransaction(ctx context.Context, repo *repository.Repository, transactionID uuid.UUID, next string, at time.Time) error {
	locked, err := repo.GetTransactionForUpdate(ctx, transactionID)
	if err != nil {
		return err
	}
	if locked.Status == next {
		return nil
	}
	if !canTransition(locked.Status, next) {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidStateTransition, locked.Status, next)
	}

	rows, err := repo.SettleTransaction(ctx, transactionID, next, at)
	if err != nil {
		return err
	}
	return requireExactlyOne(rows, "settle transaction")
}
