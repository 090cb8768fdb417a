package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/bitpal/wallet-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	svc := NewTransferService(store)
	repo := store.Repo()

	ctx := context.Background()

	// Ayo has 100.00, David has nothing.
	ayo, ayoWallet := newFundedWallet(t, repo, "ayo", decimal.RequireFromString("100.00"))
	_, davidWallet := newFundedWallet(t, repo, "david", decimal.Zero)

	result, err := svc.Transfer(ctx, fullAuth(ayo.ID), ayoWallet.ID, davidWallet.WalletNumber, decimal.RequireFromString("50.00"))
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("50.00").Equal(walletBalance(t, pool, ayoWallet.ID)))
	assert.True(t, decimal.RequireFromString("50.00").Equal(walletBalance(t, pool, davidWallet.ID)))

	// Both legs share the base reference with _OUT/_IN suffixes and are
	// settled at creation.
	require.True(t, strings.HasPrefix(result.Reference, "TRF_"))
	assert.Equal(t, result.Reference+"_OUT", result.OutLeg.Reference)
	assert.Equal(t, result.Reference+"_IN", result.InLeg.Reference)
	assert.Equal(t, domain.TxTypeTransferOut, result.OutLeg.Type)
	assert.Equal(t, domain.TxTypeTransferIn, result.InLeg.Type)
	assert.Equal(t, domain.TxStatusSuccess, result.OutLeg.Status)
	assert.Equal(t, domain.TxStatusSuccess, result.InLeg.Status)
	require.NotNil(t, result.OutLeg.CounterpartyWalletID)
	assert.Equal(t, davidWallet.ID, *result.OutLeg.CounterpartyWalletID)
	require.NotNil(t, result.InLeg.CounterpartyWalletID)
	assert.Equal(t, ayoWallet.ID, *result.InLeg.CounterpartyWalletID)
	require.NotNil(t, result.OutLeg.CompletedAt)
	require.NotNil(t, result.InLeg.CompletedAt)
}

func TestTransferInsufficientFunds(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	svc := NewTransferService(store)
	repo := store.Repo()

	ctx := context.Background()

	ayo, ayoWallet := newFundedWallet(t, repo, "ayo", decimal.RequireFromString("10.00"))
	_, davidWallet := newFundedWallet(t, repo, "david", decimal.Zero)

	_, err := svc.Transfer(ctx, fullAuth(ayo.ID), ayoWallet.ID, davidWallet.WalletNumber, decimal.RequireFromString("10.01"))
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	// Nothing moved and no transaction rows were left behind.
	assert.True(t, decimal.RequireFromString("10.00").Equal(walletBalance(t, pool, ayoWallet.ID)))
	assert.True(t, decimal.Zero.Equal(walletBalance(t, pool, davidWallet.ID)))

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestTransferRejectsSelfAndBadInput(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	svc := NewTransferService(store)
	repo := store.Repo()

	ctx := context.Background()

	ayo, ayoWallet := newFundedWallet(t, repo, "ayo", decimal.RequireFromString("100.00"))

	_, err := svc.Transfer(ctx, fullAuth(ayo.ID), ayoWallet.ID, ayoWallet.WalletNumber, decimal.RequireFromString("5.00"))
	require.ErrorIs(t, err, models.ErrSelfTransfer)

	_, err = svc.Transfer(ctx, fullAuth(ayo.ID), ayoWallet.ID, "0000000000000", decimal.RequireFromString("5.00"))
	require.ErrorIs(t, err, models.ErrRecipientNotFound)

	_, err = svc.Transfer(ctx, fullAuth(ayo.ID), ayoWallet.ID, ayoWallet.WalletNumber, decimal.Zero)
	require.ErrorIs(t, err, models.ErrInvalidAmount)

	readOnly := domain.AuthContext{UserID: ayo.ID, Capabilities: []domain.Capability{domain.CapabilityRead}}
	_, err = svc.Transfer(ctx, readOnly, ayoWallet.ID, "0000000000000", decimal.RequireFromString("5.00"))
	require.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestTransferConcurrentOpposingDirections(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	svc := NewTransferService(store)
	repo := store.Repo()

	ctx := context.Background()

	ayo, ayoWallet := newFundedWallet(t, repo, "ayo", decimal.RequireFromString("100.00"))
	david, davidWallet := newFundedWallet(t, repo, "david", decimal.RequireFromString("100.00"))

	// Opposing transfers in parallel: ordered locking must not deadlock
	// and total funds must be conserved.
	const rounds = 10
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, fullAuth(ayo.ID), ayoWallet.ID, davidWallet.WalletNumber, decimal.RequireFromString("1.00"))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, fullAuth(david.ID), davidWallet.ID, ayoWallet.WalletNumber, decimal.RequireFromString("1.00"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	total := walletBalance(t, pool, ayoWallet.ID).Add(walletBalance(t, pool, davidWallet.ID))
	assert.True(t, decimal.RequireFromString("200.00").Equal(total), "total balance changed: %s", total)
}
