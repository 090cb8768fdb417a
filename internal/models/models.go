package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors surfaced to callers. Ledger-mutating paths roll back their
// whole unit of work before returning any of these.
var (
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrRecipientNotFound       = errors.New("recipient wallet not found")
	ErrSelfTransfer            = errors.New("cannot transfer to your own wallet")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrInvalidStateTransition  = errors.New("invalid transaction state transition")
	ErrPermissionDenied        = errors.New("credential lacks the required permission")
	ErrUserNotFound            = errors.New("user not found")
	ErrAPIKeyNotFound          = errors.New("api key not found")
	ErrAPIKeyLimitReached      = errors.New("maximum active api keys reached")
	ErrReferenceAlreadyExists  = errors.New("transaction reference already exists")
	ErrWalletNumberUnavailable = errors.New("wallet number collision")
)

type User struct {
	ID        uuid.UUID `json:"id"`
	GoogleID  string    `json:"google_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Wallet holds one user's balance. Exactly one wallet per user, created
// atomically with the user at first authentication. The balance column
// carries a CHECK (balance >= 0) constraint.
type Wallet struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	WalletNumber string          `json:"wallet_number"`
	Balance      decimal.Decimal `json:"balance"`
	Currency     string          `json:"currency"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Transaction records a single balance movement. Amount and type are
// immutable after creation; status, completed_at and the provider
// correlation fields may change exactly once, while the row is pending.
type Transaction struct {
	ID                   uuid.UUID       `json:"id"`
	WalletID             uuid.UUID       `json:"wallet_id"`
	Type                 string          `json:"type"`
	Status               string          `json:"status"`
	Amount               decimal.Decimal `json:"amount"`
	Reference            string          `json:"reference"`
	Description          string          `json:"description,omitempty"`
	CounterpartyWalletID *uuid.UUID      `json:"counterparty_wallet_id,omitempty"`
	ProviderReference    *string         `json:"provider_reference,omitempty"`
	ProviderAccessCode   *string         `json:"-"`
	AuthorizationURL     *string         `json:"authorization_url,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	CompletedAt          *time.Time      `json:"completed_at,omitempty"`
}

// APIKey is a capability token for service-to-service callers. Only the
// sha256 hash of the full key is stored.
type APIKey struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Name        string     `json:"name"`
	KeyHash     string     `json:"-"`
	KeyPrefix   string     `json:"key_prefix"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   time.Time  `json:"expires_at"`
	IsActive    bool       `json:"is_active"`
	IsRevoked   bool       `json:"is_revoked"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}
