package service

import (
	"context"

	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/google/uuid"
)

const (
	defaultTransactionPageSize = 50
	maxTransactionPageSize     = 200
)

// WalletService serves the read side of a wallet: balance and history.
// It never mutates balances.
type WalletService struct {
	store QueryStore
}

func NewWalletService(store QueryStore) *WalletService {
	return &WalletService{store: store}
}

func (s *WalletService) Balance(ctx context.Context, auth domain.AuthContext, userID uuid.UUID) (*models.Wallet, error) {
	if !auth.Has(domain.CapabilityRead) {
		return nil, models.ErrPermissionDenied
	}
	return s.store.Repo().GetWalletByUserID(ctx, userID)
}

// Transactions returns the wallet's history, newest first.
func (s *WalletService) Transactions(ctx context.Context, auth domain.AuthContext, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if !auth.Has(domain.CapabilityRead) {
		return nil, models.ErrPermissionDenied
	}
	if limit <= 0 {
		limit = defaultTransactionPageSize
	}
	if limit > maxTransactionPageSize {
		limit = maxTransactionPageSize
	}
	if offset < 0 {
		offset = 0
	}

	wallet, err := s.store.Repo().GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.Repo().ListTransactions(ctx, wallet.ID, limit, offset)
}

// TransactionByReference fetches one transaction, scoped to the caller's
// wallet so references from other wallets stay invisible.
func (s *WalletService) TransactionByReference(ctx context.Context, auth domain.AuthContext, userID uuid.UUID, reference string) (*models.Transaction, error) {
	if !auth.Has(domain.CapabilityRead) {
		return nil, models.ErrPermissionDenied
	}
	wallet, err := s.store.Repo().GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.Repo().GetTransactionByReference(ctx, wallet.ID, reference)
}
