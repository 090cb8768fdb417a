package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/bitpal/wallet-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	svc := NewAPIKeyService(store)
	repo := store.Repo()

	ctx := context.Background()

	user, _ := newFundedWallet(t, repo, "keyholder", decimal.Zero)

	key, rawKey, err := svc.Create(ctx, user.ID, "ci-bot", []string{"deposit", "read"}, "1D")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(rawKey, "sk_live_"))
	assert.Equal(t, rawKey[:15], key.KeyPrefix)
	assert.NotContains(t, key.KeyHash, rawKey)
	assert.True(t, key.ExpiresAt.After(time.Now().Add(23*time.Hour)))

	// The raw key authenticates to exactly the granted capabilities.
	authKey, auth, err := svc.Authenticate(ctx, rawKey)
	require.NoError(t, err)
	assert.Equal(t, key.ID, authKey.ID)
	assert.Equal(t, user.ID, auth.UserID)
	assert.True(t, auth.Has(domain.CapabilityDeposit))
	assert.True(t, auth.Has(domain.CapabilityRead))
	assert.False(t, auth.Has(domain.CapabilityTransfer))

	// Listing exposes the display prefix, never the hash or full key.
	keys, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.KeyPrefix, keys[0].KeyPrefix)

	require.NoError(t, svc.Revoke(ctx, user.ID, key.ID))
	_, _, err = svc.Authenticate(ctx, rawKey)
	require.ErrorIs(t, err, ErrAPIKeyInvalid)
}

func TestAPIKeyCreateValidation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	svc := NewAPIKeyService(store)
	repo := store.Repo()

	ctx := context.Background()

	user, _ := newFundedWallet(t, repo, "keyholder", decimal.Zero)

	_, _, err := svc.Create(ctx, user.ID, "bad-perm", []string{"admin"}, "1D")
	require.ErrorIs(t, err, ErrInvalidPermission)

	_, _, err = svc.Create(ctx, user.ID, "no-perms", nil, "1D")
	require.ErrorIs(t, err, ErrInvalidPermission)

	_, _, err = svc.Create(ctx, user.ID, "bad-expiry", []string{"read"}, "2W")
	require.ErrorIs(t, err, ErrInvalidExpiry)

	// At most five active keys per user.
	for i := 0; i < 5; i++ {
		_, _, err := svc.Create(ctx, user.ID, "key", []string{"read"}, "1H")
		require.NoError(t, err)
	}
	_, _, err = svc.Create(ctx, user.ID, "one-too-many", []string{"read"}, "1H")
	require.ErrorIs(t, err, models.ErrAPIKeyLimitReached)

	// Revoking frees a slot.
	keys, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, user.ID, keys[0].ID))
	_, _, err = svc.Create(ctx, user.ID, "replacement", []string{"read"}, "1H")
	require.NoError(t, err)
}

func TestAPIKeySweepExpired(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := repository.NewStore(pool)
	svc := NewAPIKeyService(store)
	repo := store.Repo()

	ctx := context.Background()

	user, _ := newFundedWallet(t, repo, "keyholder", decimal.Zero)

	// Insert an already-expired key directly; expiry codes cannot mint one.
	rawKey := "sk_live_expired-test-key"
	expired := &models.APIKey{
		ID:          uuid.New(),
		UserID:      user.ID,
		Name:        "stale",
		KeyHash:     HashAPIKey(rawKey),
		KeyPrefix:   rawKey[:15],
		Permissions: []string{"read"},
		ExpiresAt:   time.Now().UTC().Add(-time.Hour),
		IsActive:    true,
	}
	require.NoError(t, repo.CreateAPIKey(ctx, expired))

	_, _, err := svc.Authenticate(ctx, rawKey)
	require.ErrorIs(t, err, ErrAPIKeyInvalid)

	swept, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	fetched, err := repo.GetAPIKeyByID(ctx, user.ID, expired.ID)
	require.NoError(t, err)
	assert.False(t, fetched.IsActive)
}
