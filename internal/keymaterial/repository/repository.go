package repository

import (
	"context"
	"errors"

	"commerce-auth-core/internal/keymaterial/domain"
)

// ErrDuplicateName is returned by Create when a record with the same name
// already exists. The signing-key provisioner relies on this to detect that
// another instance won the first-boot provisioning race.
var ErrDuplicateName = errors.New("key material record already exists")

// Repository persists named key-material records.
type Repository interface {
	// GetByName returns the record for name, or nil if not found.
	GetByName(ctx context.Context, name string) (*domain.Record, error)
	// Create inserts the record. Returns ErrDuplicateName if the name is taken.
	Create(ctx context.Context, r *domain.Record) error
}
