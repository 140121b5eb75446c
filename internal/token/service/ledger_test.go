package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	auditdomain "commerce-auth-core/internal/audit/domain"
	"commerce-auth-core/internal/security"
	"commerce-auth-core/internal/telemetry"
	"commerce-auth-core/internal/token/domain"
)

// fakeTokenRepo is an in-memory TokenRepo. RevokeIfActive is atomic under the
// mutex, matching the conditional-update semantics of the real store.
type fakeTokenRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byID: map[string]*domain.RefreshToken{}}
}

func (f *fakeTokenRepo) Create(_ context.Context, t *domain.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.byID[t.ID] = &cp
	return nil
}

func (f *fakeTokenRepo) GetByHash(_ context.Context, hash string) (*domain.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byID {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTokenRepo) GetByID(_ context.Context, id string) (*domain.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokenRepo) RevokeIfActive(_ context.Context, id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}
	rt := at
	t.RevokedAt = &rt
	return true, nil
}

func (f *fakeTokenRepo) RevokeAllByUser(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byID {
		if t.UserID == userID && t.RevokedAt == nil {
			rt := at
			t.RevokedAt = &rt
		}
	}
	return nil
}

func (f *fakeTokenRepo) RevokeAllBySession(_ context.Context, sessionID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byID {
		if t.SessionID == sessionID && t.RevokedAt == nil {
			rt := at
			t.RevokedAt = &rt
		}
	}
	return nil
}

// countingRecorder counts recorded events per action.
type countingRecorder struct {
	mu      sync.Mutex
	actions map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{actions: map[string]int{}}
}

func (c *countingRecorder) Record(_ context.Context, e auditdomain.TokenEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions[e.Action]++
}

func (c *countingRecorder) count(action string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.actions[action]
}

func newTestLedger(t *testing.T, ttl time.Duration) (*Ledger, *fakeTokenRepo, *countingRecorder) {
	t.Helper()
	digester, err := security.NewDigester("test-secret")
	if err != nil {
		t.Fatalf("NewDigester: %v", err)
	}
	repo := newFakeTokenRepo()
	rec := newCountingRecorder()
	return NewLedger(repo, digester, ttl, rec, nil), repo, rec
}

func TestLedger_IssueStoresDigestOnly(t *testing.T) {
	l, repo, rec := newTestLedger(t, time.Hour)

	raw, tok, err := l.Issue(context.Background(), "u1", "s1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if raw == "" {
		t.Fatal("raw token empty")
	}
	if tok.TokenHash == raw {
		t.Fatal("raw token stored in cleartext")
	}
	stored, _ := repo.GetByID(context.Background(), tok.ID)
	if stored == nil {
		t.Fatal("token not persisted")
	}
	if stored.TokenHash != tok.TokenHash {
		t.Error("persisted hash differs from returned token")
	}
	if got := stored.ExpiresAt.Sub(stored.CreatedAt); got != time.Hour {
		t.Errorf("ttl = %v, want %v", got, time.Hour)
	}
	if rec.count(auditdomain.ActionIssued) != 1 {
		t.Errorf("issued events = %d, want 1", rec.count(auditdomain.ActionIssued))
	}
}

func TestLedger_ValidateUnknownToken(t *testing.T) {
	l, _, _ := newTestLedger(t, time.Hour)
	if _, err := l.Validate(context.Background(), "never-issued"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestLedger_ValidateExpiredToken(t *testing.T) {
	l, _, _ := newTestLedger(t, time.Hour)
	raw, _, err := l.Issue(context.Background(), "u1", "s1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	l.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := l.Validate(context.Background(), raw); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestLedger_RotateChainAndReplay(t *testing.T) {
	l, _, rec := newTestLedger(t, time.Hour)
	ctx := context.Background()

	raw1, _, err := l.Issue(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	raw2, tok2, err := l.Rotate(ctx, raw1)
	if err != nil {
		t.Fatalf("first Rotate: %v", err)
	}
	if raw2 == raw1 {
		t.Fatal("rotation returned the same raw token")
	}
	if tok2.UserID != "u1" || tok2.SessionID != "s1" {
		t.Errorf("rotated token principal = %s/%s, want u1/s1", tok2.UserID, tok2.SessionID)
	}
	raw3, _, err := l.Rotate(ctx, raw2)
	if err != nil {
		t.Fatalf("second Rotate: %v", err)
	}

	// Replaying any earlier link of the chain must fail.
	if _, _, err := l.Rotate(ctx, raw1); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("replay of raw1: err = %v, want ErrTokenRevoked", err)
	}
	if _, err := l.Validate(ctx, raw2); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("replay of raw2: err = %v, want ErrTokenRevoked", err)
	}
	if _, err := l.Validate(ctx, raw3); err != nil {
		t.Errorf("head of chain should validate: %v", err)
	}

	if got := rec.count(auditdomain.ActionRotated); got != 2 {
		t.Errorf("rotated events = %d, want 2", got)
	}
}

func TestLedger_ConcurrentRotateSingleWinner(t *testing.T) {
	l, _, _ := newTestLedger(t, time.Hour)
	ctx := context.Background()

	raw, _, err := l.Issue(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = l.Rotate(ctx, raw)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrTokenRevoked):
		default:
			t.Errorf("attempt %d: unexpected error %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestLedger_RevokeIsIdempotent(t *testing.T) {
	l, _, rec := newTestLedger(t, time.Hour)
	ctx := context.Background()

	raw, tok, err := l.Issue(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := l.Revoke(ctx, tok.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := l.Revoke(ctx, tok.ID); err != nil {
		t.Fatalf("second Revoke should be a no-op: %v", err)
	}
	if err := l.Revoke(ctx, "unknown-id"); err != nil {
		t.Fatalf("Revoke of unknown id should be a no-op: %v", err)
	}
	if _, err := l.Validate(ctx, raw); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("err = %v, want ErrTokenRevoked", err)
	}
	if got := rec.count(auditdomain.ActionRevoked); got != 1 {
		t.Errorf("revoked events = %d, want 1", got)
	}
}

func TestLedger_RevokeAllByUser(t *testing.T) {
	l, _, _ := newTestLedger(t, time.Hour)
	ctx := context.Background()

	rawA1, _, _ := l.Issue(ctx, "alice", "s1")
	rawA2, _, _ := l.Issue(ctx, "alice", "s2")
	rawB, _, _ := l.Issue(ctx, "bob", "s3")

	if err := l.RevokeAll(ctx, "alice"); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	if _, err := l.Validate(ctx, rawA1); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("alice token 1: err = %v, want ErrTokenRevoked", err)
	}
	if _, err := l.Validate(ctx, rawA2); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("alice token 2: err = %v, want ErrTokenRevoked", err)
	}
	if _, err := l.Validate(ctx, rawB); err != nil {
		t.Errorf("bob's token should survive: %v", err)
	}
}

func TestLedger_RevokeAllBySession(t *testing.T) {
	l, _, _ := newTestLedger(t, time.Hour)
	ctx := context.Background()

	rawS1, _, _ := l.Issue(ctx, "u1", "s1")
	rawS2, _, _ := l.Issue(ctx, "u1", "s2")

	if err := l.RevokeAllBySession(ctx, "u1", "s1"); err != nil {
		t.Fatalf("RevokeAllBySession: %v", err)
	}
	if _, err := l.Validate(ctx, rawS1); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("session s1 token: err = %v, want ErrTokenRevoked", err)
	}
	if _, err := l.Validate(ctx, rawS2); err != nil {
		t.Errorf("session s2 token should survive: %v", err)
	}
}

func TestLedger_CountsIssuesAndRotations(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := telemetry.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	digester, err := security.NewDigester("test-secret")
	if err != nil {
		t.Fatalf("NewDigester: %v", err)
	}
	l := NewLedger(newFakeTokenRepo(), digester, time.Hour, nil, metrics)
	ctx := context.Background()

	raw, _, err := l.Issue(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, err := l.Rotate(ctx, raw); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	// Replay: counted as a failed rotation.
	if _, _, err := l.Rotate(ctx, raw); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("replay: err = %v, want ErrTokenRevoked", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	// Two issues: the initial one and the one minted by the winning rotation.
	if got := totals["auth.tokens.issued"]; got != 2 {
		t.Errorf("auth.tokens.issued = %d, want 2", got)
	}
	// Two rotation attempts: one winner, one replay.
	if got := totals["auth.refresh.rotations"]; got != 2 {
		t.Errorf("auth.refresh.rotations = %d, want 2", got)
	}
}

func TestIsInvalidCredential(t *testing.T) {
	for _, err := range []error{ErrTokenNotFound, ErrTokenRevoked, ErrTokenExpired} {
		if !IsInvalidCredential(err) {
			t.Errorf("IsInvalidCredential(%v) = false, want true", err)
		}
	}
	if IsInvalidCredential(nil) {
		t.Error("IsInvalidCredential(nil) = true, want false")
	}
	if IsInvalidCredential(errors.New("connection refused")) {
		t.Error("infrastructure errors must not read as credential errors")
	}
}
