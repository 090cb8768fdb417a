package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/bitpal/wallet-service/internal/provider/paystack"
	"github.com/bitpal/wallet-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider fakes the Paystack client for deposit tests.
type stubProvider struct {
	initErr    error
	verifyErr  error
	verify     *paystack.VerifyResult
	lastRef    string
	lastAmount int64
}

func (p *stubProvider) Initialize(ctx context.Context, email string, amountMinor int64, reference string) (*paystack.InitializeResult, error) {
	p.lastRef = reference
	p.lastAmount = amountMinor
	if p.initErr != nil {
		return nil, p.initErr
	}
	return &paystack.InitializeResult{
		AuthorizationURL: "https://checkout.paystack.com/" + reference,
		AccessCode:       "ac_" + reference,
		Reference:        reference,
	}, nil
}

func (p *stubProvider) Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error) {
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	return p.verify, nil
}

func TestInitiateDeposit(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	provider := &stubProvider{}
	svc := NewDepositService(store, provider)
	repo := store.Repo()

	ctx := context.Background()

	user, wallet := newFundedWallet(t, repo, "depositor", decimal.Zero)

	intent, err := svc.Initiate(ctx, fullAuth(user.ID), user.ID, decimal.RequireFromString("250.00"), user.Email)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(intent.Reference, "DEP_"))
	assert.Equal(t, "https://checkout.paystack.com/"+intent.Reference, intent.AuthorizationURL)
	assert.Equal(t, int64(25000), provider.lastAmount)

	// Pending row with provider details attached; balance untouched until
	// the webhook arrives.
	txn, err := repo.GetTransactionByReference(ctx, wallet.ID, intent.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypeDeposit, txn.Type)
	assert.Equal(t, domain.TxStatusPending, txn.Status)
	require.NotNil(t, txn.AuthorizationURL)
	require.NotNil(t, txn.ProviderAccessCode)
	assert.True(t, decimal.Zero.Equal(walletBalance(t, pool, wallet.ID)))
}

func TestInitiateDepositProviderFailure(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	provider := &stubProvider{initErr: errors.New("paystack is down")}
	svc := NewDepositService(store, provider)
	repo := store.Repo()

	ctx := context.Background()

	user, wallet := newFundedWallet(t, repo, "depositor", decimal.Zero)

	_, err := svc.Initiate(ctx, fullAuth(user.ID), user.ID, decimal.RequireFromString("40.00"), user.Email)
	require.ErrorIs(t, err, ErrProvider)

	// The pending row is settled failed, never deleted.
	txn, err := repo.GetTransactionByReference(ctx, wallet.ID, provider.lastRef)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, txn.Status)
	assert.True(t, decimal.Zero.Equal(walletBalance(t, pool, wallet.ID)))
}

func TestInitiateDepositRequiresCapability(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	svc := NewDepositService(store, &stubProvider{})
	repo := store.Repo()

	user, _ := newFundedWallet(t, repo, "depositor", decimal.Zero)

	readOnly := domain.AuthContext{UserID: user.ID, Capabilities: []domain.Capability{domain.CapabilityRead}}
	_, err := svc.Initiate(context.Background(), readOnly, user.ID, decimal.RequireFromString("1.00"), user.Email)
	require.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestVerifyDepositDegradesToLocalStatus(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	provider := &stubProvider{verifyErr: errors.New("timeout")}
	svc := NewDepositService(store, provider)
	repo := store.Repo()

	ctx := context.Background()

	user, wallet := newFundedWallet(t, repo, "verifier", decimal.Zero)
	txn := newPendingDeposit(t, repo, wallet.ID, decimal.RequireFromString("15.00"))

	v, err := svc.Verify(ctx, fullAuth(user.ID), user.ID, txn.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, v.LocalStatus)
	assert.Empty(t, v.ProviderStatus)
	assert.NotEmpty(t, v.Note)

	// Provider answers; verification reports both views but still never
	// credits the wallet.
	provider.verifyErr = nil
	provider.verify = &paystack.VerifyResult{Status: "success", AmountMinor: 1500, PaidAt: "2026-01-02T03:04:05Z"}

	v, err = svc.Verify(ctx, fullAuth(user.ID), user.ID, txn.Reference)
	require.NoError(t, err)
	assert.Equal(t, "success", v.ProviderStatus)
	assert.Equal(t, domain.TxStatusPending, v.LocalStatus)
	assert.True(t, decimal.Zero.Equal(walletBalance(t, pool, wallet.ID)))
}
