package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/bitpal/wallet-service/internal/models"
	"github.com/google/uuid"
)

const (
	maxActiveAPIKeys = 5
	apiKeyPrefix     = "sk_live_"
	displayPrefixLen = 15
)

var apiKeyExpiries = map[string]time.Duration{
	"1H": time.Hour,
	"1D": 24 * time.Hour,
	"1M": 30 * 24 * time.Hour,
	"1Y": 365 * 24 * time.Hour,
}

var (
	ErrInvalidExpiry     = errors.New("expiry must be one of 1H, 1D, 1M, 1Y")
	ErrInvalidPermission = errors.New("permissions must be a subset of deposit, transfer, read")
	ErrAPIKeyInvalid     = errors.New("api key is invalid, expired or revoked")
)

// APIKeyService issues and validates capability tokens for
// service-to-service callers. Only a sha256 hash of the key is stored.
type APIKeyService struct {
	store QueryStore
}

func NewAPIKeyService(store QueryStore) *APIKeyService {
	return &APIKeyService{store: store}
}

// Create issues a new key. The full key is returned exactly once.
func (s *APIKeyService) Create(ctx context.Context, userID uuid.UUID, name string, permissions []string, expiry string) (*models.APIKey, string, error) {
	if name == "" {
		return nil, "", errors.New("name is required")
	}
	if len(permissions) == 0 {
		return nil, "", ErrInvalidPermission
	}
	for _, p := range permissions {
		if !domain.ValidCapability(domain.Capability(p)) {
			return nil, "", fmt.Errorf("%w: %q", ErrInvalidPermission, p)
		}
	}
	ttl, ok := apiKeyExpiries[expiry]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidExpiry, expiry)
	}

	active, err := s.store.Repo().CountActiveAPIKeys(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if active >= maxActiveAPIKeys {
		return nil, "", models.ErrAPIKeyLimitReached
	}

	fullKey, prefix, hash := generateAPIKey()
	key := &models.APIKey{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		KeyHash:     hash,
		KeyPrefix:   prefix,
		Permissions: permissions,
		ExpiresAt:   time.Now().UTC().Add(ttl),
		IsActive:    true,
	}
	if err := s.store.Repo().CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}
	return key, fullKey, nil
}

func (s *APIKeyService) List(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error) {
	return s.store.Repo().ListAPIKeys(ctx, userID)
}

func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID uuid.UUID) error {
	return s.store.Repo().RevokeAPIKey(ctx, userID, keyID)
}

// Authenticate resolves a raw key to its authorization context. The key
// must be active, unrevoked and unexpired.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (*models.APIKey, domain.AuthContext, error) {
	key, err := s.store.Repo().GetAPIKeyByHash(ctx, HashAPIKey(rawKey))
	if err != nil {
		if errors.Is(err, models.ErrAPIKeyNotFound) {
			return nil, domain.AuthContext{}, ErrAPIKeyInvalid
		}
		return nil, domain.AuthContext{}, err
	}
	if !key.IsActive || key.IsRevoked || time.Now().UTC().After(key.ExpiresAt) {
		return nil, domain.AuthContext{}, ErrAPIKeyInvalid
	}

	// Usage tracking is best effort.
	_ = s.store.Repo().TouchAPIKey(ctx, key.ID, time.Now().UTC())

	caps := make([]domain.Capability, 0, len(key.Permissions))
	for _, p := range key.Permissions {
		caps = append(caps, domain.Capability(p))
	}
	return key, domain.AuthContext{UserID: key.UserID, Capabilities: caps}, nil
}

// SweepExpired flips expired keys inactive. Run periodically by the key
// sweeper worker.
func (s *APIKeyService) SweepExpired(ctx context.Context) (int64, error) {
	return s.store.Repo().DeactivateExpiredAPIKeys(ctx)
}

func generateAPIKey() (fullKey, displayPrefix, hash string) {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	fullKey = apiKeyPrefix + base64.RawURLEncoding.EncodeToString(buf)
	return fullKey, fullKey[:displayPrefixLen], HashAPIKey(fullKey)
}

// HashAPIKey returns the stored form of a raw key.
func HashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}
