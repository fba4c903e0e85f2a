package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	reconcileApp "github.com/cassiomorais/leadpay/internal/application/reconcile"
	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	"github.com/cassiomorais/leadpay/internal/gateway"
	"github.com/cassiomorais/leadpay/internal/testutil"
	"github.com/cassiomorais/leadpay/pkg/retry"
)

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, Interval: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func newRefreshFixture(t *testing.T) (*testutil.MockAttemptRepository, *gateway.MockGateway, *reconcileApp.RefreshAttemptUseCase) {
	t.Helper()
	repo := testutil.NewMockAttemptRepository()
	gw := gateway.NewMockGateway("stripe_card", gateway.WithLatency(0))
	gateways := gateway.NewFactory()
	gateways.Register(attempt.MethodStripeCard, gw)
	uc := reconcileApp.NewRefreshAttemptUseCase(repo, gateways, fastPolicy(), zerolog.Nop())
	return repo, gw, uc
}

func pendingAttempt(sessionRef string) *attempt.Attempt {
	a := testutil.NewTestAttempt(uuid.New(), nil, attempt.MethodStripeCard, 1, attempt.StatusPending)
	if sessionRef != "" {
		a.SetSessionRef(sessionRef)
	}
	return a
}

func TestRefresh_PatchesChangedStatus(t *testing.T) {
	repo, gw, uc := newRefreshFixture(t)
	a := pendingAttempt("sess_1")
	repo.Add(a)
	gw.SetStatus("sess_1", "completed")

	if err := uc.Execute(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.GetByID(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != "completed" {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.Metadata["reconciled_by"] != "stripe_card" {
		t.Errorf("expected reconciled_by in metadata, got %v", got.Metadata["reconciled_by"])
	}
	if _, ok := got.Metadata["reconciled_at"]; !ok {
		t.Error("expected reconciled_at in metadata")
	}
}

func TestRefresh_UnchangedStatusSkipsWrite(t *testing.T) {
	repo, gw, uc := newRefreshFixture(t)
	a := pendingAttempt("sess_1")
	repo.Add(a)
	gw.SetStatus("sess_1", attempt.StatusPending)

	writes := 0
	repo.UpdateStatusFunc = func(ctx context.Context, id uuid.UUID, status string, metadata map[string]any) error {
		writes++
		return nil
	}

	if err := uc.Execute(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if writes != 0 {
		t.Errorf("expected no status write, got %d", writes)
	}
}

func TestRefresh_SkipsAttemptWithoutSession(t *testing.T) {
	repo, _, uc := newRefreshFixture(t)
	a := pendingAttempt("")
	repo.Add(a)

	if err := uc.Execute(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), a.ID)
	if got.Status != attempt.StatusPending {
		t.Errorf("status must be untouched, got %s", got.Status)
	}
}

func TestRefresh_SkipsManualMethod(t *testing.T) {
	repo, _, uc := newRefreshFixture(t)
	a := testutil.NewTestAttempt(uuid.New(), nil, attempt.MethodZelle, 1, attempt.StatusRedirectedToZelle)
	a.SetSessionRef("manual_ref")
	repo.Add(a)

	if err := uc.Execute(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRefresh_SkipsCompletedAttempt(t *testing.T) {
	repo, gw, uc := newRefreshFixture(t)
	a := testutil.NewTestAttempt(uuid.New(), nil, attempt.MethodStripeCard, 1, attempt.StatusPaid)
	a.SetSessionRef("sess_1")
	repo.Add(a)
	// The provider would report something else entirely; a completed row
	// never moves again.
	gw.SetStatus("sess_1", "expired")

	if err := uc.Execute(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), a.ID)
	if got.Status != attempt.StatusPaid {
		t.Errorf("completed status must never regress, got %s", got.Status)
	}
}

func TestSweep_RefreshesPendingBatch(t *testing.T) {
	repo, gw, uc := newRefreshFixture(t)
	for i := 0; i < 3; i++ {
		ref := "sess_" + uuid.New().String()[:8]
		a := pendingAttempt(ref)
		repo.Add(a)
		gw.SetStatus(ref, "completed")
	}

	n, err := uc.Sweep(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 refreshed, got %d", n)
	}
	for _, a := range repo.All() {
		if a.Status != "completed" {
			t.Errorf("attempt %s not refreshed: %s", a.ID, a.Status)
		}
	}
}

func TestSweep_ContinuesPastFailures(t *testing.T) {
	repo, gw, uc := newRefreshFixture(t)
	bad := pendingAttempt("sess_unknown_to_provider")
	good := pendingAttempt("sess_good")
	repo.Add(bad)
	repo.Add(good)
	gw.SetStatus("sess_good", "completed")

	n, err := uc.Sweep(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 refreshed, got %d", n)
	}
	got, _ := repo.GetByID(context.Background(), good.ID)
	if got.Status != "completed" {
		t.Errorf("good attempt not refreshed: %s", got.Status)
	}
}
