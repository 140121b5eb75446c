package repository

import (
	"context"
	"time"

	"commerce-auth-core/internal/token/domain"
)

// Repository persists refresh tokens.
type Repository interface {
	// Create inserts the token row. The token must have ID and TokenHash set.
	Create(ctx context.Context, t *domain.RefreshToken) error
	// GetByHash returns the token whose stored digest equals hash, or nil if not found.
	GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)
	// GetByID returns the token for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.RefreshToken, error)
	// RevokeIfActive sets revoked_at for the token only if it is not already
	// revoked. Returns true if this call performed the revocation. The
	// conditional update is what makes concurrent rotations of the same token
	// resolve to exactly one winner.
	RevokeIfActive(ctx context.Context, id string, at time.Time) (bool, error)
	// RevokeAllByUser revokes every unrevoked token for the user.
	RevokeAllByUser(ctx context.Context, userID string, at time.Time) error
	// RevokeAllBySession revokes every unrevoked token bound to the session.
	RevokeAllBySession(ctx context.Context, sessionID string, at time.Time) error
	// DeleteExpired removes rows whose expiry passed before cutoff. Housekeeping only.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
