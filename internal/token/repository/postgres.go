package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"commerce-auth-core/internal/token/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a refresh-token repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the refresh token. The token must have ID and TokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	const q = `INSERT INTO refresh_tokens (id, user_id, session_id, token_hash, created_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, q, t.ID, t.UserID, t.SessionID, t.TokenHash,
		t.CreatedAt, t.ExpiresAt, timeToNullTime(t.RevokedAt))
	return err
}

// GetByHash returns the token whose stored digest equals hash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	const q = `SELECT id, user_id, session_id, token_hash, created_at, expires_at, revoked_at
		FROM refresh_tokens WHERE token_hash = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, hash))
}

// GetByID returns the token for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	const q = `SELECT id, user_id, session_id, token_hash, created_at, expires_at, revoked_at
		FROM refresh_tokens WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// RevokeIfActive revokes the token only if it has not been revoked yet.
// Returns true when this call won (one row updated), false when the token was
// already revoked or does not exist.
func (r *PostgresRepository) RevokeIfActive(ctx context.Context, id string, at time.Time) (bool, error) {
	const q = `UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeAllByUser revokes every unrevoked token for the user.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string, at time.Time) error {
	const q = `UPDATE refresh_tokens SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, userID, at)
	return err
}

// RevokeAllBySession revokes every unrevoked token bound to the session.
func (r *PostgresRepository) RevokeAllBySession(ctx context.Context, sessionID string, at time.Time) error {
	const q = `UPDATE refresh_tokens SET revoked_at = $2 WHERE session_id = $1 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, sessionID, at)
	return err
}

// DeleteExpired removes rows whose expiry passed before cutoff and returns
// how many were deleted.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM refresh_tokens WHERE expires_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	var revokedAt sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.SessionID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.RevokedAt = nullTimeToPtr(revokedAt)
	return &t, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
