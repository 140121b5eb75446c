package service

import (
	"context"
	"time"

	auditdomain "commerce-auth-core/internal/audit/domain"
	"commerce-auth-core/internal/security"
	sessiondomain "commerce-auth-core/internal/session/domain"
	"commerce-auth-core/internal/telemetry"
	tokendomain "commerce-auth-core/internal/token/domain"
)

// Principal identifies the subject an access token is minted for.
type Principal struct {
	UserID    string
	TenantID  string
	SessionID string
}

// AccessToken is a freshly minted access credential.
type AccessToken struct {
	Token     string
	Jti       string
	ExpiresAt time.Time
}

// RefreshResult holds the outcome of a refresh-token rotation: the new raw
// refresh token, its row, and a new access token for the same principal.
type RefreshResult struct {
	AccessToken  AccessToken
	RefreshToken string
	Token        *tokendomain.RefreshToken
}

// SessionStart holds the outcome of BeginSession.
type SessionStart struct {
	Session      *sessiondomain.Session
	AccessToken  AccessToken
	RefreshToken string
}

// RefreshLedger is the refresh-token ledger surface the facade composes.
type RefreshLedger interface {
	Issue(ctx context.Context, userID, sessionID string) (string, *tokendomain.RefreshToken, error)
	Rotate(ctx context.Context, raw string) (string, *tokendomain.RefreshToken, error)
	Revoke(ctx context.Context, tokenID string) error
	RevokeAll(ctx context.Context, userID string) error
	RevokeAllBySession(ctx context.Context, userID, sessionID string) error
}

// JtiRegistry is the revocation-registry surface the facade composes.
type JtiRegistry interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) error
}

// Sessions is the session-manager surface the facade composes.
type Sessions interface {
	Create(ctx context.Context, userID, tenantID, ipAddress, userAgent string) (*sessiondomain.Session, error)
	Get(ctx context.Context, id string) (*sessiondomain.Session, error)
	Deactivate(ctx context.Context, id string) error
	Touch(ctx context.Context, id string) error
}

// EventRecorder records token lifecycle events, best-effort.
type EventRecorder interface {
	Record(ctx context.Context, e auditdomain.TokenEvent)
}

// AuthService composes the token-lifecycle components behind the operations
// that sign-in, refresh, and logout orchestration call. It holds no state of
// its own; the dependency graph is fixed and wired explicitly at startup.
type AuthService struct {
	issuer   *security.TokenIssuer
	ledger   RefreshLedger
	registry JtiRegistry
	sessions Sessions
	recorder EventRecorder
	metrics  *telemetry.Metrics
}

// NewAuthService returns an AuthService with the given dependencies. recorder
// and metrics may be nil.
func NewAuthService(issuer *security.TokenIssuer, ledger RefreshLedger, registry JtiRegistry, sessions Sessions, recorder EventRecorder, metrics *telemetry.Metrics) *AuthService {
	return &AuthService{issuer: issuer, ledger: ledger, registry: registry, sessions: sessions, recorder: recorder, metrics: metrics}
}

// IssueAccessToken mints a stateless access token for the principal and
// records its jti in the issuance trail so RevokeAllForUser can later
// denylist it.
func (s *AuthService) IssueAccessToken(ctx context.Context, p Principal) (AccessToken, error) {
	token, jti, expiresAt, err := s.issuer.IssueAccess(p.UserID, p.TenantID, p.SessionID)
	if err != nil {
		return AccessToken{}, err
	}
	s.metrics.TokenIssued(ctx, auditdomain.TokenTypeAccess)
	if s.recorder != nil {
		exp := expiresAt
		s.recorder.Record(ctx, auditdomain.TokenEvent{
			UserID:    p.UserID,
			SessionID: p.SessionID,
			TokenType: auditdomain.TokenTypeAccess,
			Action:    auditdomain.ActionIssued,
			Jti:       jti,
			ExpiresAt: &exp,
		})
	}
	return AccessToken{Token: token, Jti: jti, ExpiresAt: expiresAt}, nil
}

// IssueRefreshToken mints an opaque refresh token bound to the user and session.
func (s *AuthService) IssueRefreshToken(ctx context.Context, userID, sessionID string) (string, *tokendomain.RefreshToken, error) {
	return s.ledger.Issue(ctx, userID, sessionID)
}

// BeginSession creates a session and mints the initial access and refresh
// tokens for it: the sign-in control flow minus credential verification,
// which belongs to the caller.
func (s *AuthService) BeginSession(ctx context.Context, userID, tenantID, ipAddress, userAgent string) (*SessionStart, error) {
	sess, err := s.sessions.Create(ctx, userID, tenantID, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	access, err := s.IssueAccessToken(ctx, Principal{UserID: userID, TenantID: tenantID, SessionID: sess.ID})
	if err != nil {
		return nil, err
	}
	rawRefresh, _, err := s.ledger.Issue(ctx, userID, sess.ID)
	if err != nil {
		return nil, err
	}
	return &SessionStart{Session: sess, AccessToken: access, RefreshToken: rawRefresh}, nil
}

// Refresh rotates the presented refresh token and mints a new access token
// for the same principal. The tenant is taken from the session the token is
// bound to, never from the caller, so a confused caller cannot stamp a
// foreign tenant into a valid token. A replayed (already rotated) token fails
// with ErrTokenRevoked from the ledger; session activity is updated
// best-effort.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*RefreshResult, error) {
	newRaw, t, err := s.ledger.Rotate(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(ctx, t.SessionID)
	if err != nil {
		return nil, err
	}
	_ = s.sessions.Touch(ctx, t.SessionID)
	access, err := s.IssueAccessToken(ctx, Principal{UserID: t.UserID, TenantID: sess.TenantID, SessionID: t.SessionID})
	if err != nil {
		return nil, err
	}
	return &RefreshResult{AccessToken: access, RefreshToken: newRaw, Token: t}, nil
}

// RevokeRefreshToken revokes a single refresh token by id. No-op if already revoked.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, tokenID string) error {
	return s.ledger.Revoke(ctx, tokenID)
}

// Logout deactivates the session and revokes the refresh tokens bound to it.
// The two steps are explicit because session deactivation alone does not
// cascade to tokens.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	if err := s.ledger.RevokeAllBySession(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.sessions.Deactivate(ctx, sessionID)
}

// LogoutEverywhere revokes all refresh tokens for the user and denylists the
// user's known outstanding access-token jtis. Already-issued access tokens
// unknown to the trail remain valid up to one access TTL.
func (s *AuthService) LogoutEverywhere(ctx context.Context, userID string) error {
	if err := s.ledger.RevokeAll(ctx, userID); err != nil {
		return err
	}
	return s.registry.RevokeAllForUser(ctx, userID)
}

// RevokeJti denylists a single access-token jti until its natural expiry.
func (s *AuthService) RevokeJti(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	return s.registry.Revoke(ctx, jti, userID, expiresAt)
}

// IsJtiRevoked reports whether the jti is denylisted. Callers gating requests
// must fail closed on error.
func (s *AuthService) IsJtiRevoked(ctx context.Context, jti string) (bool, error) {
	return s.registry.IsRevoked(ctx, jti)
}
