package repository

import (
	"context"
	"database/sql"
	"time"

	"commerce-auth-core/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a token-event repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the event. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.TokenEvent) error {
	const q = `INSERT INTO token_events (id, user_id, session_id, token_type, action, jti, token_id, expires_at, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	sid := sql.NullString{String: e.SessionID, Valid: e.SessionID != ""}
	jti := sql.NullString{String: e.Jti, Valid: e.Jti != ""}
	tid := sql.NullString{String: e.TokenID, Valid: e.TokenID != ""}
	meta := sql.NullString{String: e.Metadata, Valid: e.Metadata != ""}
	var exp sql.NullTime
	if e.ExpiresAt != nil {
		exp = sql.NullTime{Time: *e.ExpiresAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q, e.ID, e.UserID, sid, e.TokenType, e.Action, jti, tid, exp, meta, e.CreatedAt)
	return err
}

// ListByUser returns events for the user, newest first, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.TokenEvent, error) {
	const q = `SELECT id, user_id, session_id, token_type, action, jti, token_id, expires_at, metadata, created_at
		FROM token_events WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.TokenEvent
	for rows.Next() {
		var e domain.TokenEvent
		var sid, jti, tid, meta sql.NullString
		var exp sql.NullTime
		if err := rows.Scan(&e.ID, &e.UserID, &sid, &e.TokenType, &e.Action, &jti, &tid, &exp, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.SessionID = sid.String
		e.Jti = jti.String
		e.TokenID = tid.String
		e.Metadata = meta.String
		if exp.Valid {
			t := exp.Time
			e.ExpiresAt = &t
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ListOutstandingAccess returns jtis of access tokens issued to the user
// whose natural expiry is after now.
func (r *PostgresRepository) ListOutstandingAccess(ctx context.Context, userID string, now time.Time) ([]domain.IssuedAccess, error) {
	const q = `SELECT jti, expires_at FROM token_events
		WHERE user_id = $1 AND token_type = $2 AND action = $3 AND jti IS NOT NULL AND expires_at > $4`
	rows, err := r.db.QueryContext(ctx, q, userID, domain.TokenTypeAccess, domain.ActionIssued, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.IssuedAccess
	for rows.Next() {
		var ia domain.IssuedAccess
		if err := rows.Scan(&ia.Jti, &ia.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, ia)
	}
	return out, rows.Err()
}
