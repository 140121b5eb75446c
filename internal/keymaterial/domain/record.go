package domain

import "time"

// Record is a named configuration value. The signing key pair is stored as
// two records (public and private half); both are immutable once written.
type Record struct {
	Name        string
	Value       string
	Description string
	CreatedAt   time.Time
}
