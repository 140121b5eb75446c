package service

import (
	"context"
	"time"

	auditdomain "commerce-auth-core/internal/audit/domain"
	auditrepo "commerce-auth-core/internal/audit/repository"
	"commerce-auth-core/internal/revocation/domain"
)

// JtiRepo is the minimal revoked-jti repository needed by the registry.
type JtiRepo interface {
	Insert(ctx context.Context, r *domain.RevokedJti) error
	Exists(ctx context.Context, jti string) (bool, error)
}

// EventRecorder records token lifecycle events, best-effort.
type EventRecorder interface {
	Record(ctx context.Context, e auditdomain.TokenEvent)
}

// Registry is the global access-token revocation registry: a denylist keyed
// by jti. Access tokens are stateless, so denylisting the jti is the only way
// to kill one before its natural expiry.
type Registry struct {
	repo     JtiRepo
	events   auditrepo.Repository
	recorder EventRecorder
	now      func() time.Time
}

// NewRegistry returns a Registry backed by repo. events supplies the issuance
// trail that RevokeAllForUser consults; recorder may be nil.
func NewRegistry(repo JtiRepo, events auditrepo.Repository, recorder EventRecorder) *Registry {
	return &Registry{repo: repo, events: events, recorder: recorder, now: time.Now}
}

// Revoke denylists the jti until expiresAt, after which the row is eligible
// for garbage collection. Idempotent: revoking an already-revoked jti succeeds.
func (r *Registry) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	err := r.repo.Insert(ctx, &domain.RevokedJti{
		Jti:       jti,
		UserID:    userID,
		RevokedAt: r.now().UTC(),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return err
	}
	if r.recorder != nil {
		exp := expiresAt
		r.recorder.Record(ctx, auditdomain.TokenEvent{
			UserID:    userID,
			TokenType: auditdomain.TokenTypeAccess,
			Action:    auditdomain.ActionRevoked,
			Jti:       jti,
			ExpiresAt: &exp,
		})
	}
	return nil
}

// IsRevoked reports whether the jti is denylisted. An error means the store
// is unreachable; the authorization gate must treat that as revoked (fail
// closed), never as valid.
func (r *Registry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return r.repo.Exists(ctx, jti)
}

// RevokeAllForUser denylists the user's known outstanding access-token jtis,
// taken from the issuance trail. Tokens issued but never recorded (or issued
// on another instance before the trail caught up) die by natural expiry at
// the latest: the worst-case acceptance window after a forced logout is one
// access-token lifetime. That window is a deliberate trade-off of stateless
// access tokens, not a bug.
func (r *Registry) RevokeAllForUser(ctx context.Context, userID string) error {
	now := r.now().UTC()
	outstanding, err := r.events.ListOutstandingAccess(ctx, userID, now)
	if err != nil {
		return err
	}
	for _, ia := range outstanding {
		if err := r.Revoke(ctx, ia.Jti, userID, ia.ExpiresAt); err != nil {
			return err
		}
	}
	return nil
}
