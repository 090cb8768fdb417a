package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/bitpal/wallet-service/internal/observability"
	"github.com/bitpal/wallet-service/internal/provider/paystack"
	"github.com/bitpal/wallet-service/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrUnknownReference  = errors.New("webhook reference matches no transaction")
	ErrMissingReference  = errors.New("webhook payload has no reference")
	ErrMalformedWebhook  = errors.New("malformed webhook payload")
	ErrNotDepositWebhook = errors.New("webhook reference is not a deposit")
)

// WebhookService applies the provider's asynchronous payment notifications
// to the ledger exactly once. It is the single authorized path by which a
// deposit ever credits a wallet.
type WebhookService struct {
	store     QueryStore
	secretKey string
	skipSig   bool
}

// NewWebhookService creates a webhook processor. skipSignature exists for
// local development only.
func NewWebhookService(store QueryStore, secretKey string, skipSignature bool) *WebhookService {
	return &WebhookService{store: store, secretKey: secretKey, skipSig: skipSignature}
}

// webhookEvent mirrors the provider's notification shape. The amount field
// is parsed but never trusted for crediting: the locally stored transaction
// amount is authoritative.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference   string `json:"reference"`
		Status      string `json:"status"`
		AmountMinor int64  `json:"amount"`
		PaidAt      string `json:"paid_at"`
	} `json:"data"`
}

// WebhookOutcome describes what processing did, for logging and the
// acknowledgment body. The HTTP layer acknowledges regardless.
type WebhookOutcome struct {
	Reference string `json:"reference,omitempty"`
	Status    string `json:"status,omitempty"`
	Credited  bool   `json:"credited"`
	Message   string `json:"message"`
}

// HandleWebhook verifies and applies one notification. Replays of an
// already-settled deposit are acknowledged as no-ops; the credit is applied
// at most once, and always for the locally recorded amount.
func (s *WebhookService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookOutcome, error) {
	if !s.skipSig && !paystack.VerifySignature(s.secretKey, payload, signature) {
		observability.IncrementWebhook("invalid_signature")
		return nil, ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		observability.IncrementWebhook("malformed")
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}

	if event.Event != domain.EventChargeSuccess {
		observability.IncrementWebhook("ignored_event")
		return &WebhookOutcome{Message: fmt.Sprintf("event %q ignored", event.Event)}, nil
	}
	if event.Data.Reference == "" {
		observability.IncrementWebhook("missing_reference")
		return nil, ErrMissingReference
	}

	repo := s.store.Repo()
	txn, err := repo.GetTransactionByProviderReference(ctx, event.Data.Reference)
	if err != nil {
		if errors.Is(err, models.ErrTransactionNotFound) {
			observability.IncrementWebhook("unknown_reference")
			return nil, fmt.Errorf("%w: %s", ErrUnknownReference, event.Data.Reference)
		}
		return nil, err
	}
	if txn.Type != domain.TxTypeDeposit {
		observability.IncrementWebhook("not_deposit")
		return nil, fmt.Errorf("%w: %s", ErrNotDepositWebhook, event.Data.Reference)
	}

	// Idempotent short-circuit: a replay of an already-settled deposit
	// must not touch the ledger.
	if txn.Status == domain.TxStatusSuccess {
		observability.IncrementWebhook("replayed")
		return &WebhookOutcome{
			Reference: txn.Reference,
			Status:    txn.Status,
			Message:   "deposit already processed",
		}, nil
	}

	if event.Data.Status != "success" {
		if err := s.store.RunInTx(ctx, func(r *repository.Repository) error {
			return settleTransaction(ctx, r, txn.ID, domain.TxStatusFailed, time.Now().UTC())
		}); err != nil {
			return nil, err
		}
		observability.IncrementWebhook("charge_failed")
		return &WebhookOutcome{
			Reference: txn.Reference,
			Status:    domain.TxStatusFailed,
			Message:   "provider reported non-success; no credit applied",
		}, nil
	}

	if reported := domain.FromMinorUnits(event.Data.AmountMinor); event.Data.AmountMinor > 0 && !reported.Equal(txn.Amount) {
		// Credit proceeds with the local amount regardless; the payload
		// amount is untrusted input.
		zap.L().Warn("webhook amount differs from recorded transaction",
			zap.String("reference", txn.Reference),
			zap.String("recorded", txn.Amount.StringFixed(2)),
			zap.String("reported", reported.StringFixed(2)))
		observability.IncrementWebhook("amount_mismatch")
	}

	credited := false
	err = s.store.RunInTx(ctx, func(r *repository.Repository) error {
		locked, err := r.GetTransactionForUpdate(ctx, txn.ID)
		if err != nil {
			return err
		}
		if locked.Status != domain.TxStatusPending {
			// A concurrent delivery settled it first.
			return nil
		}
		if err := r.CreditWallet(ctx, locked.WalletID, locked.Amount); err != nil {
			return err
		}
		rows, err := r.SettleTransaction(ctx, locked.ID, domain.TxStatusSuccess, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "settle deposit"); err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		observability.IncrementWebhook("credit_failed")
		return nil, err
	}

	if credited {
		observability.IncrementWebhook("credited")
		zap.L().Info("deposit credited",
			zap.String("reference", txn.Reference),
			zap.String("amount", txn.Amount.StringFixed(2)))
	} else {
		observability.IncrementWebhook("replayed")
	}
	return &WebhookOutcome{
		Reference: txn.Reference,
		Status:    domain.TxStatusSuccess,
		Credited:  credited,
		Message:   "deposit processed",
	}, nil
}
