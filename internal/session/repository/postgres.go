package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"commerce-auth-core/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	const q = `SELECT id, tenant_id, user_id, ip_address, user_agent, is_active, created_at, last_active_at, deleted_at
		FROM sessions WHERE id = $1`
	return scanSession(r.db.QueryRowContext(ctx, q, id))
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	const q = `INSERT INTO sessions (id, tenant_id, user_id, ip_address, user_agent, is_active, created_at, last_active_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	ip := sql.NullString{String: s.IPAddress, Valid: s.IPAddress != ""}
	ua := sql.NullString{String: s.UserAgent, Valid: s.UserAgent != ""}
	_, err := r.db.ExecContext(ctx, q, s.ID, s.TenantID, s.UserID, ip, ua,
		s.IsActive, s.CreatedAt, timeToNullTime(s.LastActiveAt), timeToNullTime(s.DeletedAt))
	return err
}

// ListActiveByUser returns all active, non-deleted sessions for the user.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	const q = `SELECT id, tenant_id, user_id, ip_address, user_agent, is_active, created_at, last_active_at, deleted_at
		FROM sessions WHERE user_id = $1 AND is_active AND deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Deactivate clears is_active for the session. Returns true if a row changed.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string, at time.Time) (bool, error) {
	const q = `UPDATE sessions SET is_active = FALSE, last_active_at = $2 WHERE id = $1 AND is_active`
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

// UpdateLastActive sets the session's last-active timestamp.
func (r *PostgresRepository) UpdateLastActive(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE sessions SET last_active_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	s, err := scanSessionFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanSessionRows(rows *sql.Rows) (*domain.Session, error) {
	return scanSessionFrom(rows)
}

func scanSessionFrom(sc rowScanner) (*domain.Session, error) {
	var s domain.Session
	var ip, ua sql.NullString
	var lastActive, deleted sql.NullTime
	err := sc.Scan(&s.ID, &s.TenantID, &s.UserID, &ip, &ua, &s.IsActive, &s.CreatedAt, &lastActive, &deleted)
	if err != nil {
		return nil, err
	}
	s.IPAddress = ip.String
	s.UserAgent = ua.String
	s.LastActiveAt = nullTimeToPtr(lastActive)
	s.DeletedAt = nullTimeToPtr(deleted)
	return &s, nil
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
