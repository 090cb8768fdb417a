package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/bitpal/wallet-service/internal/models"
	"github.com/bitpal/wallet-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUserIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	svc := NewUserService(store)

	ctx := context.Background()

	user, wallet, err := svc.EnsureUser(ctx, "google-123", "ada@example.com", "Ada")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^\d{13}$`), wallet.WalletNumber)
	assert.True(t, decimal.Zero.Equal(wallet.Balance))

	// Second login returns the same user and wallet, creates nothing.
	again, sameWallet, err := svc.EnsureUser(ctx, "google-123", "ada@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, wallet.ID, sameWallet.ID)

	var users, wallets int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&users))
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM wallets").Scan(&wallets))
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, wallets)
}

func TestDeleteUserCascades(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	userSvc := NewUserService(store)
	transferSvc := NewTransferService(store)
	keySvc := NewAPIKeyService(store)
	repo := store.Repo()

	ctx := context.Background()

	ayo, ayoWallet := newFundedWallet(t, repo, "ayo", decimal.RequireFromString("100.00"))
	_, davidWallet := newFundedWallet(t, repo, "david", decimal.Zero)

	// Ayo accumulates history and a key, then deletes the account.
	_, err := transferSvc.Transfer(ctx, fullAuth(ayo.ID), ayoWallet.ID, davidWallet.WalletNumber, decimal.RequireFromString("25.00"))
	require.NoError(t, err)
	_, _, err = keySvc.Create(ctx, ayo.ID, "soon-gone", []string{"read"}, "1H")
	require.NoError(t, err)

	require.NoError(t, userSvc.DeleteUser(ctx, ayo.ID))

	_, err = repo.GetUserByID(ctx, ayo.ID)
	require.ErrorIs(t, err, models.ErrUserNotFound)
	_, err = repo.GetWalletByID(ctx, ayoWallet.ID)
	require.ErrorIs(t, err, models.ErrWalletNotFound)

	keys, err := keySvc.List(ctx, ayo.ID)
	require.NoError(t, err)
	assert.Empty(t, keys)

	// David keeps the money but loses the counterparty rows referencing
	// the deleted wallet.
	assert.True(t, decimal.RequireFromString("25.00").Equal(walletBalance(t, pool, davidWallet.ID)))

	var orphaned int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM transactions WHERE wallet_id = $1 OR counterparty_wallet_id = $1",
		ayoWallet.ID).Scan(&orphaned))
	assert.Equal(t, 0, orphaned)
}

func TestDeleteUserMissing(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	svc := NewUserService(store)

	_, wallet, err := svc.EnsureUser(context.Background(), "google-x", "x@example.com", "X")
	require.NoError(t, err)

	err = svc.DeleteUser(context.Background(), wallet.UserID)
	require.NoError(t, err)
	err = svc.DeleteUser(context.Background(), wallet.UserID)
	require.ErrorIs(t, err, models.ErrUserNotFound)
}
