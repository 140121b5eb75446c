package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"commerce-auth-core/internal/keymaterial/domain"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a key-material repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByName returns the record for name, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.Record, error) {
	const q = `SELECT name, value, description, created_at FROM app_config WHERE name = $1`
	var rec domain.Record
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, q, name).Scan(&rec.Name, &rec.Value, &desc, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if desc.Valid {
		rec.Description = desc.String
	}
	return &rec, nil
}

// Create inserts the record. The name column carries a primary-key constraint,
// so a concurrent insert of the same name fails with ErrDuplicateName.
func (r *PostgresRepository) Create(ctx context.Context, rec *domain.Record) error {
	const q = `INSERT INTO app_config (name, value, description, created_at) VALUES ($1, $2, $3, $4)`
	desc := sql.NullString{String: rec.Description, Valid: rec.Description != ""}
	_, err := r.db.ExecContext(ctx, q, rec.Name, rec.Value, desc, rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateName
		}
		return err
	}
	return nil
}
