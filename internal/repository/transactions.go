package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitpal/wallet-service/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, wallet_id, type, status, amount, reference, description,
	counterparty_wallet_id, provider_reference, provider_access_code, authorization_url,
	created_at, updated_at, completed_at`

// CreateTransaction inserts a transaction row. Transfer legs arrive already
// settled; deposits arrive pending. A unique violation on the reference
// column surfaces as models.ErrReferenceAlreadyExists so callers can retry
// with a fresh reference.
func (r *Repository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `INSERT INTO transactions
		(id, wallet_id, type, status, amount, reference, description,
		 counterparty_wallet_id, provider_reference, provider_access_code, authorization_url,
		 created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW(), $12)
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		t.ID, t.WalletID, t.Type, t.Status, t.Amount, t.Reference, t.Description,
		t.CounterpartyWalletID, t.ProviderReference, t.ProviderAccessCode, t.AuthorizationURL,
		t.CompletedAt).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err, "transactions_reference_key") {
			return models.ErrReferenceAlreadyExists
		}
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// GetTransactionByReference is wallet-scoped: a reference guessed from
// another wallet resolves to not-found.
func (r *Repository) GetTransactionByReference(ctx context.Context, walletID uuid.UUID, reference string) (*models.Transaction, error) {
	return r.scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE wallet_id = $1 AND reference = $2`,
		walletID, reference))
}

func (r *Repository) GetTransactionByProviderReference(ctx context.Context, providerReference string) (*models.Transaction, error) {
	return r.scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE provider_reference = $1`,
		providerReference))
}

// GetTransactionForUpdate locks the row so concurrent settlement attempts
// serialize behind the caller's transaction.
func (r *Repository) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return r.scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
}

// ListTransactions returns a wallet's transactions newest first.
func (r *Repository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE wallet_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransactionFields(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// SettleTransaction moves a pending row to a terminal status. The WHERE
// clause repeats the pending check, so a concurrent settlement makes this a
// zero-row update rather than a double apply.
func (r *Repository) SettleTransaction(ctx context.Context, id uuid.UUID, status string, completedAt time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET status = $1, completed_at = $2, updated_at = NOW()
		 WHERE id = $3 AND status = 'pending'`,
		status, completedAt, id)
	if err != nil {
		return 0, fmt.Errorf("settle transaction: %w", err)
	}
	return tag.RowsAffected(), nil
}

// AttachProviderDetails records the provider's access code and redirect URL
// on a still-pending deposit.
func (r *Repository) AttachProviderDetails(ctx context.Context, id uuid.UUID, accessCode, authorizationURL string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET provider_access_code = $1, authorization_url = $2, updated_at = NOW()
		 WHERE id = $3 AND status = 'pending'`,
		accessCode, authorizationURL, id)
	if err != nil {
		return fmt.Errorf("attach provider details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrInvalidStateTransition
	}
	return nil
}

func (r *Repository) scanTransaction(row pgx.Row) (*models.Transaction, error) {
	t, err := scanTransactionFields(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func scanTransactionFields(row pgx.Row) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := row.Scan(
		&t.ID, &t.WalletID, &t.Type, &t.Status, &t.Amount, &t.Reference, &t.Description,
		&t.CounterpartyWalletID, &t.ProviderReference, &t.ProviderAccessCode, &t.AuthorizationURL,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}
