package service

import (
	"context"
	"testing"

	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/bitpal/wallet-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletTransactionsPagination(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	svc := NewWalletService(store)
	repo := store.Repo()

	ctx := context.Background()

	user, wallet := newFundedWallet(t, repo, "reader", decimal.Zero)

	refs := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		txn := newPendingDeposit(t, repo, wallet.ID, decimal.RequireFromString("1.00"))
		refs = append(refs, txn.Reference)
	}

	// Newest first.
	txs, err := svc.Transactions(ctx, fullAuth(user.ID), user.ID, 3, 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, refs[4], txs[0].Reference)

	txs, err = svc.Transactions(ctx, fullAuth(user.ID), user.ID, 3, 3)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, refs[1], txs[0].Reference)
	assert.Equal(t, refs[0], txs[1].Reference)

	// Lookup by reference is scoped to the caller's wallet.
	found, err := svc.TransactionByReference(ctx, fullAuth(user.ID), user.ID, refs[0])
	require.NoError(t, err)
	assert.Equal(t, refs[0], found.Reference)

	other, _ := newFundedWallet(t, repo, "other", decimal.Zero)
	_, err = svc.TransactionByReference(ctx, fullAuth(other.ID), other.ID, refs[0])
	require.ErrorIs(t, err, models.ErrTransactionNotFound)

	// Read paths require the read capability.
	depositOnly := domain.AuthContext{UserID: user.ID, Capabilities: []domain.Capability{domain.CapabilityDeposit}}
	_, err = svc.Balance(ctx, depositOnly, user.ID)
	require.ErrorIs(t, err, models.ErrPermissionDenied)
}
