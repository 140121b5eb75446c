package domain

import "time"

// RevokedJti is a denylisted access-token identifier. Absence means "not
// revoked". Rows may be garbage-collected once ExpiresAt passes: the token
// they deny could no longer validate anyway.
type RevokedJti struct {
	Jti       string
	UserID    string
	RevokedAt time.Time
	ExpiresAt time.Time
}
