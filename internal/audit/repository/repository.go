package repository

import (
	"context"
	"time"

	"commerce-auth-core/internal/audit/domain"
)

// Repository persists token lifecycle events.
type Repository interface {
	// Create inserts the event. The event must have ID set.
	Create(ctx context.Context, e *domain.TokenEvent) error
	// ListByUser returns events for the user, newest first, paginated by limit and offset.
	ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.TokenEvent, error)
	// ListOutstandingAccess returns jtis of access tokens issued to the user
	// whose natural expiry is after now. Used to denylist a user's known
	// outstanding access tokens on forced logout.
	ListOutstandingAccess(ctx context.Context, userID string, now time.Time) ([]domain.IssuedAccess, error)
}
