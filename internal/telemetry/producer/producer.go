// Package producer publishes token lifecycle events to Kafka, best-effort.
package producer

import (
	"context"

	"commerce-auth-core/internal/audit/domain"
)

// Producer pushes token events to an external stream. Implementations must
// tolerate broker unavailability; the audit recorder treats publish failures
// as log-and-continue.
type Producer interface {
	Publish(ctx context.Context, e *domain.TokenEvent) error
	Close() error
}
