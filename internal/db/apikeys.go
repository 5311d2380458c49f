package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/otto"
)

// APIKeys stores keys by SHA-256 digest; raw keys never reach the database.
type APIKeys struct {
	db DBTX
}

const apiKeyColumns = `k.id, k.user_id, k.name, k.is_active, k.expires_at, k.last_used_at, k.created_at`

func scanAPIKey(row pgx.Row) (otto.APIKey, error) {
	var k otto.APIKey
	err := row.Scan(&k.ID, &k.UserID, &k.Name, &k.IsActive, &k.ExpiresAt, &k.LastUsedAt, &k.CreatedAt)
	return k, classify(err)
}

// digest is the stored form of a raw key.
func digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (r *APIKeys) CreateAPIKey(ctx context.Context, key otto.APIKey) (otto.APIKey, error) {
	created, err := scanAPIKey(r.db.QueryRow(ctx,
		`INSERT INTO api_keys AS k (user_id, name, key_hash, is_active, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+apiKeyColumns,
		key.UserID, key.Name, digest(key.Key), key.IsActive, key.ExpiresAt, key.CreatedAt,
	))
	if err != nil {
		return otto.APIKey{}, err
	}
	created.Key = key.Key
	return created, nil
}

// FindAPIKey looks a raw key up with the state of its owner.
func (r *APIKeys) FindAPIKey(ctx context.Context, raw string) (otto.KeyOwner, error) {
	var o otto.KeyOwner
	k := &o.Key
	err := r.db.QueryRow(ctx,
		`SELECT `+apiKeyColumns+`, u.username, u.role, u.is_active
		 FROM api_keys k
		 JOIN users u ON u.id = k.user_id
		 WHERE k.key_hash = $1`, digest(raw),
	).Scan(&k.ID, &k.UserID, &k.Name, &k.IsActive, &k.ExpiresAt, &k.LastUsedAt, &k.CreatedAt,
		&o.Username, &o.Role, &o.UserAlive)
	if err != nil {
		return otto.KeyOwner{}, classify(err)
	}
	return o, nil
}

func (r *APIKeys) TouchAPIKey(ctx context.Context, id int64, at time.Time) error {
	return affected(r.db.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at))
}

func (r *APIKeys) ListAPIKeys(ctx context.Context, userID int64) ([]otto.APIKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys k WHERE k.user_id = $1 ORDER BY k.created_at DESC, k.id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAPIKey)
}

// ListAllAPIKeys returns every key's metadata for backups.
func (r *APIKeys) ListAllAPIKeys(ctx context.Context) ([]otto.APIKey, error) {
	rows, err := r.db.Query(ctx, `SELECT `+apiKeyColumns+` FROM api_keys k ORDER BY k.id`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAPIKey)
}

// DeleteAPIKey removes a key of userID; keys of other users are not found.
func (r *APIKeys) DeleteAPIKey(ctx context.Context, id, userID int64) error {
	return affected(r.db.Exec(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *APIKeys) SetAPIKeyActive(ctx context.Context, id, userID int64, active bool) (otto.APIKey, error) {
	return scanAPIKey(r.db.QueryRow(ctx,
		`UPDATE api_keys AS k SET is_active = $3
		 WHERE k.id = $1 AND k.user_id = $2
		 RETURNING `+apiKeyColumns, id, userID, active))
}
