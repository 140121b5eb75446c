package repository

import (
	"context"
	"time"

	"commerce-auth-core/internal/revocation/domain"
)

// Repository persists revoked access-token identifiers.
type Repository interface {
	// Insert records the jti as revoked. Inserting an already-revoked jti is
	// a no-op success.
	Insert(ctx context.Context, r *domain.RevokedJti) error
	// Exists reports whether the jti is denylisted. Absence is the common
	// case and runs on every authenticated request, so it must stay a single
	// primary-key lookup.
	Exists(ctx context.Context, jti string) (bool, error)
	// DeleteExpired removes rows whose expiry passed before cutoff. Housekeeping only.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
