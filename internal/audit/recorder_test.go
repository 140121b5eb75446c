package audit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"commerce-auth-core/internal/audit/domain"
)

type fakeEventRepo struct {
	mu     sync.Mutex
	events []*domain.TokenEvent
	err    error
}

func (f *fakeEventRepo) Create(_ context.Context, e *domain.TokenEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *e
	f.events = append(f.events, &cp)
	return nil
}

func (f *fakeEventRepo) ListByUser(_ context.Context, userID string, limit, offset int32) ([]*domain.TokenEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*domain.TokenEvent
	for _, e := range f.events {
		if e.UserID == userID {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if int(offset) >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if int(limit) < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeEventRepo) ListOutstandingAccess(_ context.Context, _ string, _ time.Time) ([]domain.IssuedAccess, error) {
	return nil, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*domain.TokenEvent
	done      chan struct{}
}

func (f *fakePublisher) Publish(_ context.Context, e *domain.TokenEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, e)
	close(f.done)
	return nil
}

func TestRecorder_FillsIDAndTimestamp(t *testing.T) {
	repo := &fakeEventRepo{}
	r := NewRecorder(repo, nil)

	r.Record(context.Background(), domain.TokenEvent{
		UserID:    "u1",
		TokenType: domain.TokenTypeRefresh,
		Action:    domain.ActionIssued,
	})

	if len(repo.events) != 1 {
		t.Fatalf("persisted events = %d, want 1", len(repo.events))
	}
	e := repo.events[0]
	if e.ID == "" {
		t.Error("event ID not filled")
	}
	if e.CreatedAt.IsZero() {
		t.Error("event CreatedAt not filled")
	}
}

func TestRecorder_PersistFailureDoesNotPanic(t *testing.T) {
	repo := &fakeEventRepo{err: errors.New("down")}
	r := NewRecorder(repo, nil)

	// Best-effort: a trail outage must not take issuance down with it.
	r.Record(context.Background(), domain.TokenEvent{Action: domain.ActionIssued})
}

func TestRecorder_NilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.Record(context.Background(), domain.TokenEvent{Action: domain.ActionIssued})
}

func TestRecorder_PublishesAsync(t *testing.T) {
	repo := &fakeEventRepo{}
	pub := &fakePublisher{done: make(chan struct{})}
	r := NewRecorder(repo, pub)

	r.Record(context.Background(), domain.TokenEvent{
		UserID:    "u1",
		TokenType: domain.TokenTypeAccess,
		Action:    domain.ActionRevoked,
	})

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event never published")
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.published) != 1 || pub.published[0].UserID != "u1" {
		t.Errorf("published = %+v", pub.published)
	}
}
