package domain

import "time"

// Token types recorded in the event trail.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Actions recorded in the event trail.
const (
	ActionIssued  = "issued"
	ActionRotated = "rotated"
	ActionRevoked = "revoked"
)

// TokenEvent is one entry in the token lifecycle audit trail. For access
// tokens the trail is also the registry's only record of outstanding JTIs,
// which revoke-all-for-user consults.
type TokenEvent struct {
	ID        string
	UserID    string
	SessionID string
	TokenType string
	Action    string
	Jti       string     // access-token identifier; empty for refresh events
	TokenID   string     // refresh-token row id; empty for access events
	ExpiresAt *time.Time // natural expiry of the token the event refers to
	Metadata  string
	CreatedAt time.Time
}

// IssuedAccess is a projection of the trail: an access-token jti that was
// issued to a user and has not yet passed its natural expiry.
type IssuedAccess struct {
	Jti       string
	ExpiresAt time.Time
}
