package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitpal/wallet-service/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the same query set
// runs inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db DBTX
}

func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a Repository bound to the given transaction.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally on a specific constraint name.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, google_id, email, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query, user.ID, user.GoogleID, user.Email, user.Name).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.scanUser(r.db.QueryRow(ctx,
		`SELECT id, google_id, email, name, created_at, updated_at FROM users WHERE id = $1`, id))
}

func (r *Repository) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.scanUser(r.db.QueryRow(ctx,
		`SELECT id, google_id, email, name, created_at, updated_at FROM users WHERE google_id = $1`, googleID))
}

func (r *Repository) scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.GoogleID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *Repository) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	query := `INSERT INTO wallets (id, user_id, wallet_number, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		wallet.ID, wallet.UserID, wallet.WalletNumber, wallet.Balance, wallet.Currency).
		Scan(&wallet.CreatedAt, &wallet.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

const walletColumns = `id, user_id, wallet_number, balance, currency, created_at, updated_at`

func (r *Repository) GetWalletByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	return r.scanWallet(r.db.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id))
}

func (r *Repository) GetWalletByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return r.scanWallet(r.db.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID))
}

func (r *Repository) GetWalletByNumber(ctx context.Context, walletNumber string) (*models.Wallet, error) {
	return r.scanWallet(r.db.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE wallet_number = $1`, walletNumber))
}

// GetWalletForUpdate locks the wallet row for the remainder of the caller's
// transaction. Callers locking two wallets must do so in consistent ID order.
func (r *Repository) GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	return r.scanWallet(r.db.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id))
}

func (r *Repository) scanWallet(row pgx.Row) (*models.Wallet, error) {
	w := &models.Wallet{}
	err := row.Scan(&w.ID, &w.UserID, &w.WalletNumber, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrWalletNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// CreditWallet increments a wallet balance. The amount must be positive.
func (r *Repository) CreditWallet(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return models.ErrInvalidAmount
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE id = $2`, amount, id)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrWalletNotFound
	}
	return nil
}

// DebitWallet decrements a wallet balance. The sufficiency check and the
// decrement are one conditional UPDATE, so two concurrent debits cannot both
// pass the check and overdraw the row.
func (r *Repository) DebitWallet(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return models.ErrInvalidAmount
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE wallets SET balance = balance - $1, updated_at = NOW() WHERE id = $2 AND balance >= $1`, amount, id)
	if err != nil {
		return fmt.Errorf("debit wallet: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetWalletByID(ctx, id); err != nil {
		return err
	}
	return models.ErrInsufficientFunds
}

// Deletion steps for the user cascade. The service composes them inside one
// transaction so ordering and partial-failure behavior stay visible.

func (r *Repository) DeleteTransactionsByWallet(ctx context.Context, walletID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM transactions WHERE wallet_id = $1 OR counterparty_wallet_id = $1`, walletID)
	if err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	return nil
}

func (r *Repository) DeleteAPIKeysByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM api_keys WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete api keys: %w", err)
	}
	return nil
}

func (r *Repository) DeleteWallet(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM wallets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrWalletNotFound
	}
	return nil
}

func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
