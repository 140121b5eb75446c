package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"commerce-auth-core/internal/session/domain"
)

// ErrSessionNotFound is returned when the session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepo is the minimal session repository needed by the manager.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	Deactivate(ctx context.Context, id string, at time.Time) (bool, error)
	UpdateLastActive(ctx context.Context, id string, at time.Time) error
}

// Manager tracks logical login sessions, one per device or browser.
type Manager struct {
	repo SessionRepo
	now  func() time.Time
}

// NewManager returns a Manager backed by repo.
func NewManager(repo SessionRepo) *Manager {
	return &Manager{repo: repo, now: time.Now}
}

// Create opens a new active session for the user at sign-in.
func (m *Manager) Create(ctx context.Context, userID, tenantID, ipAddress, userAgent string) (*domain.Session, error) {
	now := m.now().UTC()
	s := &domain.Session{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		IsActive:  true,
		CreatedAt: now,
	}
	if err := m.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the session for id, or ErrSessionNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Session, error) {
	s, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Deactivate soft-deactivates the session. It does NOT revoke the refresh
// tokens bound to the session: callers that want full logout must also call
// the refresh-token ledger's RevokeAllBySession. Deactivating an unknown
// session returns ErrSessionNotFound; an already-inactive one is a no-op.
func (m *Manager) Deactivate(ctx context.Context, id string) error {
	changed, err := m.repo.Deactivate(ctx, id, m.now().UTC())
	if err != nil {
		return err
	}
	if !changed {
		s, err := m.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if s == nil {
			return ErrSessionNotFound
		}
	}
	return nil
}

// ListActive returns the user's active sessions, newest first.
func (m *Manager) ListActive(ctx context.Context, userID string) ([]*domain.Session, error) {
	return m.repo.ListActiveByUser(ctx, userID)
}

// Touch records activity on the session (e.g. a refresh). Best-effort
// bookkeeping; an error is returned only for store failures.
func (m *Manager) Touch(ctx context.Context, id string) error {
	return m.repo.UpdateLastActive(ctx, id, m.now().UTC())
}
