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

const apiKeyColumns = `id, user_id, name, key_hash, key_prefix, permissions,
	expires_at, is_active, is_revoked, created_at, last_used_at`

func (r *Repository) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	query := `INSERT INTO api_keys
		(id, user_id, name, key_hash, key_prefix, permissions, expires_at, is_active, is_revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at`
	err := r.db.QueryRow(ctx, query,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.Permissions,
		key.ExpiresAt, key.IsActive, key.IsRevoked).
		Scan(&key.CreatedAt)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (r *Repository) CountActiveAPIKeys(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM api_keys
		 WHERE user_id = $1 AND is_active AND NOT is_revoked AND expires_at > NOW()`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return count, nil
}

func (r *Repository) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []models.APIKey
	for rows.Next() {
		k, err := scanAPIKeyFields(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

func (r *Repository) GetAPIKeyByID(ctx context.Context, userID, keyID uuid.UUID) (*models.APIKey, error) {
	return r.scanAPIKey(r.db.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1 AND user_id = $2`, keyID, userID))
}

func (r *Repository) GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	return r.scanAPIKey(r.db.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, keyHash))
}

func (r *Repository) RevokeAPIKey(ctx context.Context, userID, keyID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE api_keys SET is_revoked = TRUE, is_active = FALSE WHERE id = $1 AND user_id = $2`,
		keyID, userID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAPIKeyNotFound
	}
	return nil
}

// TouchAPIKey records key usage; failures here are non-fatal to the caller.
func (r *Repository) TouchAPIKey(ctx context.Context, keyID uuid.UUID, usedAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, usedAt, keyID)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

// DeactivateExpiredAPIKeys flips expired-but-still-active keys inactive and
// returns how many it swept.
func (r *Repository) DeactivateExpiredAPIKeys(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE api_keys SET is_active = FALSE WHERE is_active AND expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired api keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	k, err := scanAPIKeyFields(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

func scanAPIKeyFields(row pgx.Row) (*models.APIKey, error) {
	k := &models.APIKey{}
	err := row.Scan(
		&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Permissions,
		&k.ExpiresAt, &k.IsActive, &k.IsRevoked, &k.CreatedAt, &k.LastUsedAt)
	if err != nil {
		return nil, err
	}
	return k, nil
}
