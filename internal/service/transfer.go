package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/bitpal/wallet-service/internal/observability"
	"github.com/bitpal/wallet-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransferService moves funds between two wallets synchronously and
// atomically. Both legs settle at creation; there is no pending window.
type TransferService struct {
	store QueryStore
}

func NewTransferService(store QueryStore) *TransferService {
	return &TransferService{store: store}
}

// TransferResult carries both legs of a completed transfer.
type TransferResult struct {
	Reference string             `json:"reference"`
	Amount    decimal.Decimal    `json:"amount"`
	OutLeg    models.Transaction `json:"out_leg"`
	InLeg     models.Transaction `json:"in_leg"`
}

// Transfer validates, then applies debit, credit and both transaction rows
// inside one database transaction. The sufficiency check outside the
// transaction is advisory only; the authoritative check happens on the
// locked sender row.
func (s *TransferService) Transfer(ctx context.Context, auth domain.AuthContext, senderWalletID uuid.UUID, recipientWalletNumber string, amount decimal.Decimal) (*TransferResult, error) {
	if !auth.Has(domain.CapabilityTransfer) {
		return nil, models.ErrPermissionDenied
	}
	if !amount.IsPositive() {
		return nil, models.ErrInvalidAmount
	}

	repo := s.store.Repo()

	sender, err := repo.GetWalletByID(ctx, senderWalletID)
	if err != nil {
		return nil, err
	}
	recipient, err := repo.GetWalletByNumber(ctx, recipientWalletNumber)
	if err != nil {
		if errors.Is(err, models.ErrWalletNotFound) {
			return nil, models.ErrRecipientNotFound
		}
		return nil, err
	}
	if sender.ID == recipient.ID {
		return nil, models.ErrSelfTransfer
	}
	if sender.Balance.LessThan(amount) {
		return nil, models.ErrInsufficientFunds
	}

	result, err := s.execute(ctx, sender, recipient, amount)
	if errors.Is(err, models.ErrReferenceAlreadyExists) {
		// The unique index caught a generator collision; one fresh
		// reference is all the retry policy allows.
		zap.L().Warn("transfer reference collision, retrying",
			zap.String("sender_wallet", sender.ID.String()))
		result, err = s.execute(ctx, sender, recipient, amount)
	}
	if err != nil {
		observability.IncrementTransfer("failed")
		return nil, err
	}
	observability.IncrementTransfer("success")
	return result, nil
}

func (s *TransferService) execute(ctx context.Context, sender, recipient *models.Wallet, amount decimal.Decimal) (*TransferResult, error) {
	baseRef := domain.NewReference(domain.ReferencePrefixTransfer)
	outRef, inRef := domain.TransferLegReferences(baseRef)
	now := time.Now().UTC()

	outLeg := &models.Transaction{
		ID:                   uuid.New(),
		WalletID:             sender.ID,
		Type:                 domain.TxTypeTransferOut,
		Status:               domain.TxStatusSuccess,
		Amount:               amount,
		Reference:            outRef,
		Description:          fmt.Sprintf("Transfer to wallet %s", recipient.WalletNumber),
		CounterpartyWalletID: &recipient.ID,
		CompletedAt:          &now,
	}
	inLeg := &models.Transaction{
		ID:                   uuid.New(),
		WalletID:             recipient.ID,
		Type:                 domain.TxTypeTransferIn,
		Status:               domain.TxStatusSuccess,
		Amount:               amount,
		Reference:            inRef,
		Description:          fmt.Sprintf("Transfer from wallet %s", sender.WalletNumber),
		CounterpartyWalletID: &sender.ID,
		CompletedAt:          &now,
	}

	err := s.store.RunInTx(ctx, func(r *repository.Repository) error {
		// Lock both wallets in consistent ID order to prevent deadlocks.
		first, second := sender.ID, recipient.ID
		if first.String() > second.String() {
			first, second = second, first
		}
		if _, err := r.GetWalletForUpdate(ctx, first); err != nil {
			return err
		}
		lockedSecond, err := r.GetWalletForUpdate(ctx, second)
		if err != nil {
			return err
		}

		lockedSender := lockedSecond
		if second != sender.ID {
			lockedSender, err = r.GetWalletByID(ctx, sender.ID)
			if err != nil {
				return err
			}
		}
		if lockedSender.Balance.LessThan(amount) {
			return models.ErrInsufficientFunds
		}

		if err := r.CreateTransaction(ctx, outLeg); err != nil {
			return err
		}
		if err := r.CreateTransaction(ctx, inLeg); err != nil {
			return err
		}
		if err := r.DebitWallet(ctx, sender.ID, amount); err != nil {
			return err
		}
		return r.CreditWallet(ctx, recipient.ID, amount)
	})
	if err != nil {
		return nil, err
	}

	return &TransferResult{
		Reference: baseRef,
		Amount:    amount,
		OutLeg:    *outLeg,
		InLeg:     *inLeg,
	}, nil
}
