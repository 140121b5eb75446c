package domain

import "time"

// RefreshToken is one issuance of a long-lived opaque credential. Only the
// digest of the raw token is stored. A rotation creates a new row and marks
// this row revoked; Revoked and Expired are terminal.
type RefreshToken struct {
	ID        string
	UserID    string
	SessionID string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time // nil when not revoked
}

// Revoked reports whether the token has been rotated away or explicitly revoked.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the token is past its expiry at the given time.
// Expiry is computed at validation time; no stored transition exists.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
