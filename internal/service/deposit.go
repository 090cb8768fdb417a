package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/bitpal/wallet-service/internal/observability"
	"github.com/bitpal/wallet-service/internal/provider/paystack"
	"github.com/bitpal/wallet-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrProvider wraps payment-provider API failures. The provider is never
// retried synchronously; the deposit is marked failed instead.
var ErrProvider = errors.New("payment provider error")

// DepositService creates pending deposits and hands collection off to the
// external provider. Crediting happens only later, through the webhook
// processor.
type DepositService struct {
	store    QueryStore
	provider paystack.Client
}

func NewDepositService(store QueryStore, provider paystack.Client) *DepositService {
	return &DepositService{store: store, provider: provider}
}

// DepositIntent is returned to the caller so it can redirect the user to
// the provider's hosted checkout.
type DepositIntent struct {
	Reference        string          `json:"reference"`
	Amount           decimal.Decimal `json:"amount"`
	AuthorizationURL string          `json:"authorization_url"`
}

// Initiate records a pending deposit and initializes payment with the
// provider. The provider call happens after the pending row has committed,
// never inside an open ledger transaction: it is slow network I/O and must
// not hold row locks.
func (s *DepositService) Initiate(ctx context.Context, auth domain.AuthContext, userID uuid.UUID, amount decimal.Decimal, email string) (*DepositIntent, error) {
	if !auth.Has(domain.CapabilityDeposit) {
		return nil, models.ErrPermissionDenied
	}
	if !amount.IsPositive() {
		return nil, models.ErrInvalidAmount
	}

	repo := s.store.Repo()
	wallet, err := repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	txn, err := s.createPending(ctx, wallet.ID, amount)
	if errors.Is(err, models.ErrReferenceAlreadyExists) {
		txn, err = s.createPending(ctx, wallet.ID, amount)
	}
	if err != nil {
		return nil, err
	}

	init, err := s.provider.Initialize(ctx, email, domain.MinorUnits(amount), txn.Reference)
	if err != nil {
		observability.IncrementDeposit("provider_failed")
		if settleErr := s.store.RunInTx(ctx, func(r *repository.Repository) error {
			return settleTransaction(ctx, r, txn.ID, domain.TxStatusFailed, time.Now().UTC())
		}); settleErr != nil {
			zap.L().Error("failed to mark deposit failed after provider error",
				zap.Error(settleErr), zap.String("reference", txn.Reference))
		}
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	if err := repo.AttachProviderDetails(ctx, txn.ID, init.AccessCode, init.AuthorizationURL); err != nil {
		// Settlement won the race against the provider handshake; the
		// deposit itself is fine.
		zap.L().Warn("could not attach provider details",
			zap.Error(err), zap.String("reference", txn.Reference))
	}

	observability.IncrementDeposit("initiated")
	return &DepositIntent{
		Reference:        txn.Reference,
		Amount:           amount,
		AuthorizationURL: init.AuthorizationURL,
	}, nil
}

func (s *DepositService) createPending(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*models.Transaction, error) {
	reference := domain.NewReference(domain.ReferencePrefixDeposit)
	txn := &models.Transaction{
		ID:                uuid.New(),
		WalletID:          walletID,
		Type:              domain.TxTypeDeposit,
		Status:            domain.TxStatusPending,
		Amount:            amount,
		Reference:         reference,
		Description:       fmt.Sprintf("Deposit of %s %s", domain.DefaultCurrency, amount.StringFixed(2)),
		ProviderReference: &reference,
	}
	if err := s.store.Repo().CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Status reports the locally recorded state of a deposit. It never talks to
// the provider and never mutates balance.
func (s *DepositService) Status(ctx context.Context, auth domain.AuthContext, userID uuid.UUID, reference string) (*models.Transaction, error) {
	if !auth.Has(domain.CapabilityRead) {
		return nil, models.ErrPermissionDenied
	}
	wallet, err := s.store.Repo().GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.Repo().GetTransactionByReference(ctx, wallet.ID, reference)
}

// Verification is the result of asking the provider about a deposit whose
// webhook may not have arrived yet. Read-only: the webhook remains the only
// path that credits a wallet.
type Verification struct {
	Reference      string          `json:"reference"`
	LocalStatus    string          `json:"local_status"`
	Amount         decimal.Decimal `json:"amount"`
	ProviderStatus string          `json:"provider_status,omitempty"`
	PaidAt         string          `json:"paid_at,omitempty"`
	Channel        string          `json:"channel,omitempty"`
	Note           string          `json:"note,omitempty"`
}

// Verify queries the provider for its view of the deposit. Provider
// failures degrade to the local status instead of erroring.
func (s *DepositService) Verify(ctx context.Context, auth domain.AuthContext, userID uuid.UUID, reference string) (*Verification, error) {
	txn, err := s.Status(ctx, auth, userID, reference)
	if err != nil {
		return nil, err
	}

	out := &Verification{
		Reference:   txn.Reference,
		LocalStatus: txn.Status,
		Amount:      txn.Amount,
	}

	remote, err := s.provider.Verify(ctx, reference)
	if err != nil {
		zap.L().Warn("provider verification failed",
			zap.Error(err), zap.String("reference", reference))
		out.Note = "provider verification unavailable; showing local status"
		return out, nil
	}

	out.ProviderStatus = remote.Status
	out.PaidAt = remote.PaidAt
	out.Channel = remote.Channel
	out.Note = "webhook credits the wallet automatically on success"
	return out, nil
}
