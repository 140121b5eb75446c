package audit

import (
	"context"

	"commerce-auth-core/internal/audit/domain"
	auditrepo "commerce-auth-core/internal/audit/repository"
)

// Page bounds for trail reads.
const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Trail is the read side of the token-event audit trail.
type Trail struct {
	repo auditrepo.Repository
}

// NewTrail returns a Trail backed by repo.
func NewTrail(repo auditrepo.Repository) *Trail {
	return &Trail{repo: repo}
}

// ListByUser returns the user's token events, newest first. limit defaults to
// 50 and is capped at 500; a negative offset reads from the start.
func (t *Trail) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.TokenEvent, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return t.repo.ListByUser(ctx, userID, limit, offset)
}
