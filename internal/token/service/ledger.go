package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	auditdomain "commerce-auth-core/internal/audit/domain"
	"commerce-auth-core/internal/security"
	"commerce-auth-core/internal/telemetry"
	"commerce-auth-core/internal/token/domain"
)

// Sentinel errors for refresh-token validation. They stay distinct internally
// for logging and metrics; external responses must collapse them via
// IsInvalidCredential so a caller cannot probe which failure occurred.
var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenRevoked  = errors.New("refresh token revoked")
	ErrTokenExpired  = errors.New("refresh token expired")
)

// IsInvalidCredential reports whether err is any of the refresh-token
// validation failures. Infrastructure errors (store unreachable) are not
// credential errors and return false.
func IsInvalidCredential(err error) bool {
	return errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrTokenExpired)
}

// TokenRepo is the minimal refresh-token repository needed by the ledger.
type TokenRepo interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)
	GetByID(ctx context.Context, id string) (*domain.RefreshToken, error)
	RevokeIfActive(ctx context.Context, id string, at time.Time) (bool, error)
	RevokeAllByUser(ctx context.Context, userID string, at time.Time) error
	RevokeAllBySession(ctx context.Context, sessionID string, at time.Time) error
}

// EventRecorder records token lifecycle events, best-effort.
type EventRecorder interface {
	Record(ctx context.Context, e auditdomain.TokenEvent)
}

// Ledger issues, validates, and rotates refresh tokens. Raw tokens are
// returned to the caller exactly once; only their keyed digest is stored.
type Ledger struct {
	repo     TokenRepo
	digester *security.Digester
	ttl      time.Duration
	recorder EventRecorder
	metrics  *telemetry.Metrics
	now      func() time.Time
}

// NewLedger returns a Ledger with the given dependencies. recorder and
// metrics may be nil.
func NewLedger(repo TokenRepo, digester *security.Digester, ttl time.Duration, recorder EventRecorder, metrics *telemetry.Metrics) *Ledger {
	return &Ledger{repo: repo, digester: digester, ttl: ttl, recorder: recorder, metrics: metrics, now: time.Now}
}

// Issue generates a high-entropy raw token bound to the user and session,
// stores its digest, and returns the raw value. This is the only time the
// raw token exists outside the client.
func (l *Ledger) Issue(ctx context.Context, userID, sessionID string) (string, *domain.RefreshToken, error) {
	raw, err := security.GenerateRawToken()
	if err != nil {
		return "", nil, err
	}
	now := l.now().UTC()
	t := &domain.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		SessionID: sessionID,
		TokenHash: l.digester.Digest(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(l.ttl),
	}
	if err := l.repo.Create(ctx, t); err != nil {
		return "", nil, err
	}
	l.metrics.TokenIssued(ctx, auditdomain.TokenTypeRefresh)
	l.record(ctx, t, auditdomain.ActionIssued)
	return raw, t, nil
}

// Validate recomputes the digest of raw and looks the token up. Returns
// ErrTokenNotFound for an unknown digest, ErrTokenRevoked for a rotated or
// explicitly revoked token, ErrTokenExpired past expiry.
func (l *Ledger) Validate(ctx context.Context, raw string) (*domain.RefreshToken, error) {
	t, err := l.repo.GetByHash(ctx, l.digester.Digest(raw))
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTokenNotFound
	}
	if t.Revoked() {
		return nil, ErrTokenRevoked
	}
	if t.Expired(l.now().UTC()) {
		return nil, ErrTokenExpired
	}
	return t, nil
}

// Rotate validates the presented token, revokes it, and issues a new token
// bound to the same session. The revoke uses a conditional update, so two
// concurrent rotations of the same raw token produce exactly one winner; the
// loser gets ErrTokenRevoked. Revoke happens before issue: a crash between
// the two steps fails closed (old token dead, no new token).
func (l *Ledger) Rotate(ctx context.Context, raw string) (string, *domain.RefreshToken, error) {
	t, err := l.Validate(ctx, raw)
	if err != nil {
		if IsInvalidCredential(err) {
			l.metrics.Rotation(ctx, false)
		}
		return "", nil, err
	}
	won, err := l.repo.RevokeIfActive(ctx, t.ID, l.now().UTC())
	if err != nil {
		return "", nil, err
	}
	if !won {
		l.metrics.Rotation(ctx, false)
		return "", nil, ErrTokenRevoked
	}
	l.metrics.Rotation(ctx, true)
	l.record(ctx, t, auditdomain.ActionRotated)
	return l.Issue(ctx, t.UserID, t.SessionID)
}

// Revoke marks the token with the given id revoked. Revoking an already
// revoked or unknown token is a no-op success.
func (l *Ledger) Revoke(ctx context.Context, tokenID string) error {
	won, err := l.repo.RevokeIfActive(ctx, tokenID, l.now().UTC())
	if err != nil {
		return err
	}
	if won {
		if t, err := l.repo.GetByID(ctx, tokenID); err == nil && t != nil {
			l.record(ctx, t, auditdomain.ActionRevoked)
		}
	}
	return nil
}

// RevokeAll revokes every unrevoked token for the user. Used on password
// change or forced logout-everywhere, alongside the revocation registry's
// RevokeAllForUser for access tokens.
func (l *Ledger) RevokeAll(ctx context.Context, userID string) error {
	if err := l.repo.RevokeAllByUser(ctx, userID, l.now().UTC()); err != nil {
		return err
	}
	l.record(ctx, &domain.RefreshToken{UserID: userID}, auditdomain.ActionRevoked)
	return nil
}

// RevokeAllBySession revokes every unrevoked token bound to the session.
// Deactivating a session does not do this implicitly; callers that want full
// logout of a device call this explicitly.
func (l *Ledger) RevokeAllBySession(ctx context.Context, userID, sessionID string) error {
	if err := l.repo.RevokeAllBySession(ctx, sessionID, l.now().UTC()); err != nil {
		return err
	}
	l.record(ctx, &domain.RefreshToken{UserID: userID, SessionID: sessionID}, auditdomain.ActionRevoked)
	return nil
}

func (l *Ledger) record(ctx context.Context, t *domain.RefreshToken, action string) {
	if l.recorder == nil {
		return
	}
	var exp *time.Time
	if !t.ExpiresAt.IsZero() {
		e := t.ExpiresAt
		exp = &e
	}
	l.recorder.Record(ctx, auditdomain.TokenEvent{
		UserID:    t.UserID,
		SessionID: t.SessionID,
		TokenType: auditdomain.TokenTypeRefresh,
		Action:    action,
		TokenID:   t.ID,
		ExpiresAt: exp,
	})
}
