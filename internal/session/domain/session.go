package domain

import "time"

// Session is a logical login (one per device or browser) owning zero or more
// refresh tokens. It is a grouping and audit construct, not a credential:
// deactivating it does not revoke the tokens bound to it. Sessions are never
// hard-deleted, only soft-deactivated.
type Session struct {
	ID           string
	TenantID     string
	UserID       string
	IPAddress    string
	UserAgent    string
	IsActive     bool
	CreatedAt    time.Time
	LastActiveAt *time.Time
	DeletedAt    *time.Time // nil unless soft-deleted
}
