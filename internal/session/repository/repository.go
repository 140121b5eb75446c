package repository

import (
	"context"
	"time"

	"commerce-auth-core/internal/session/domain"
)

// Repository persists sessions.
type Repository interface {
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// Create persists the session. The session must have ID set.
	Create(ctx context.Context, s *domain.Session) error
	// ListActiveByUser returns all active, non-deleted sessions for the user.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// Deactivate clears is_active for the session. Returns true if a row changed.
	Deactivate(ctx context.Context, id string, at time.Time) (bool, error)
	// UpdateLastActive sets the session's last-active timestamp.
	UpdateLastActive(ctx context.Context, id string, at time.Time) error
}
