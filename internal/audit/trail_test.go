package audit

import (
	"context"
	"testing"
	"time"

	"commerce-auth-core/internal/audit/domain"
)

func seedEvent(t *testing.T, repo *fakeEventRepo, userID, action string, at time.Time) {
	t.Helper()
	err := repo.Create(context.Background(), &domain.TokenEvent{
		ID:        action + "-" + at.Format(time.RFC3339Nano),
		UserID:    userID,
		TokenType: domain.TokenTypeRefresh,
		Action:    action,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestTrail_ListByUserNewestFirst(t *testing.T) {
	repo := &fakeEventRepo{}
	now := time.Now().UTC()
	seedEvent(t, repo, "alice", domain.ActionIssued, now.Add(-2*time.Hour))
	seedEvent(t, repo, "alice", domain.ActionRotated, now.Add(-time.Hour))
	seedEvent(t, repo, "alice", domain.ActionRevoked, now)
	seedEvent(t, repo, "bob", domain.ActionIssued, now)

	events, err := NewTrail(repo).ListByUser(context.Background(), "alice", 0, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	want := []string{domain.ActionRevoked, domain.ActionRotated, domain.ActionIssued}
	for i, e := range events {
		if e.UserID != "alice" {
			t.Errorf("event %d belongs to %q", i, e.UserID)
		}
		if e.Action != want[i] {
			t.Errorf("event %d action = %q, want %q", i, e.Action, want[i])
		}
	}
}

func TestTrail_ListByUserPagination(t *testing.T) {
	repo := &fakeEventRepo{}
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		seedEvent(t, repo, "alice", domain.ActionIssued, now.Add(time.Duration(i)*time.Minute))
	}
	trail := NewTrail(repo)
	ctx := context.Background()

	page, err := trail.ListByUser(ctx, "alice", 2, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("first page = %d events, want 2", len(page))
	}
	rest, err := trail.ListByUser(ctx, "alice", 10, 4)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("offset page = %d events, want 1", len(rest))
	}
	// Nonsense bounds fall back to sane defaults rather than erroring.
	all, err := trail.ListByUser(ctx, "alice", -1, -3)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("defaulted page = %d events, want 5", len(all))
	}
}
