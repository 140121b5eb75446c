package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"commerce-auth-core/internal/audit/domain"
	auditrepo "commerce-auth-core/internal/audit/repository"
)

// publishTimeout bounds a single async event publish so shutdown is not held
// up by a slow broker.
const publishTimeout = 5 * time.Second

// EventPublisher pushes a token event to an external sink (e.g. Kafka).
// Publishing is best-effort; failures must not affect the caller.
type EventPublisher interface {
	Publish(ctx context.Context, e *domain.TokenEvent) error
}

// Recorder writes token lifecycle events to the audit trail and, when a
// publisher is configured, mirrors them to the event stream. Persistence
// failures are logged, not returned: issuance must not fail because the
// trail is briefly unavailable.
type Recorder struct {
	repo      auditrepo.Repository
	publisher EventPublisher
}

// NewRecorder returns a Recorder that persists to repo. publisher may be nil.
func NewRecorder(repo auditrepo.Repository, publisher EventPublisher) *Recorder {
	return &Recorder{repo: repo, publisher: publisher}
}

// Record writes one token event. The caller supplies everything except ID and
// CreatedAt, which are filled here. Best-effort: errors are logged and not returned.
func (r *Recorder) Record(ctx context.Context, e domain.TokenEvent) {
	if r == nil || r.repo == nil {
		return
	}
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC()
	if err := r.repo.Create(ctx, &e); err != nil {
		log.Printf("audit: failed to record %s/%s event: %v", e.TokenType, e.Action, err)
	}
	if r.publisher != nil {
		// Detached context so request cancellation does not abort an in-flight publish.
		go func(e domain.TokenEvent) {
			pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()
			if err := r.publisher.Publish(pubCtx, &e); err != nil {
				log.Printf("audit: failed to publish %s/%s event: %v", e.TokenType, e.Action, err)
			}
		}(e)
	}
}
