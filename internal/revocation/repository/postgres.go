package repository

import (
	"context"
	"database/sql"
	"time"

	"commerce-auth-core/internal/revocation/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a revoked-jti repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert records the jti as revoked. ON CONFLICT DO NOTHING makes repeated
// revocation of the same jti a no-op success.
func (r *PostgresRepository) Insert(ctx context.Context, rec *domain.RevokedJti) error {
	const q = `INSERT INTO revoked_jtis (jti, user_id, revoked_at, expires_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (jti) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, rec.Jti, rec.UserID, rec.RevokedAt, rec.ExpiresAt)
	return err
}

// Exists reports whether the jti is denylisted.
func (r *PostgresRepository) Exists(ctx context.Context, jti string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM revoked_jtis WHERE jti = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, jti).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteExpired removes rows whose expiry passed before cutoff and returns
// how many were deleted.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM revoked_jtis WHERE expires_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
