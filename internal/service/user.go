package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/bitpal/wallet-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UserService manages user records and the 1:1 wallet created alongside
// them at first authentication.
type UserService struct {
	store QueryStore
}

func NewUserService(store QueryStore) *UserService {
	return &UserService{store: store}
}

// EnsureUser returns the user for the given identity, creating the user and
// its wallet atomically if this is the first authentication. The wallet
// number collides with overwhelming improbability; creation retries once on
// the uniqueness constraint.
func (s *UserService) EnsureUser(ctx context.Context, googleID, email, name string) (*models.User, *models.Wallet, error) {
	repo := s.store.Repo()

	user, err := repo.GetUserByGoogleID(ctx, googleID)
	if err == nil {
		wallet, werr := repo.GetWalletByUserID(ctx, user.ID)
		if werr != nil {
			return nil, nil, werr
		}
		return user, wallet, nil
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, nil, err
	}

	user = &models.User{
		ID:       uuid.New(),
		GoogleID: googleID,
		Email:    email,
		Name:     name,
	}
	var wallet *models.Wallet

	create := func(r *repository.Repository) error {
		if err := r.CreateUser(ctx, user); err != nil {
			return err
		}
		wallet = &models.Wallet{
			ID:           uuid.New(),
			UserID:       user.ID,
			WalletNumber: domain.NewWalletNumber(),
			Balance:      decimal.Zero,
			Currency:     domain.DefaultCurrency,
		}
		return r.CreateWallet(ctx, wallet)
	}

	err = s.store.RunInTx(ctx, create)
	if err != nil && repository.IsUniqueViolation(err, "wallets_wallet_number_key") {
		zap.L().Warn("wallet number collision, retrying", zap.String("user_id", user.ID.String()))
		err = s.store.RunInTx(ctx, create)
	}
	if err != nil {
		if repository.IsUniqueViolation(err, "users_google_id_key") || repository.IsUniqueViolation(err, "users_email_key") {
			// Lost a first-login race; the other request created the user.
			user, err = repo.GetUserByGoogleID(ctx, googleID)
			if err != nil {
				return nil, nil, err
			}
			wallet, err = repo.GetWalletByUserID(ctx, user.ID)
			if err != nil {
				return nil, nil, err
			}
			return user, wallet, nil
		}
		return nil, nil, fmt.Errorf("create user with wallet: %w", err)
	}
	return user, wallet, nil
}

// DeleteUser removes a user and everything hanging off it in one unit of
// work: transactions, api keys, the wallet, then the user row. The steps
// are explicit so ordering and partial-failure behavior stay testable; no
// implicit cascade.
func (s *UserService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return s.store.RunInTx(ctx, func(r *repository.Repository) error {
		wallet, err := r.GetWalletByUserID(ctx, userID)
		if err != nil && !errors.Is(err, models.ErrWalletNotFound) {
			return err
		}
		if wallet != nil {
			if err := r.DeleteTransactionsByWallet(ctx, wallet.ID); err != nil {
				return err
			}
		}
		if err := r.DeleteAPIKeysByUser(ctx, userID); err != nil {
			return err
		}
		if wallet != nil {
			if err := r.DeleteWallet(ctx, wallet.ID); err != nil {
				return err
			}
		}
		return r.DeleteUser(ctx, userID)
	})
}
