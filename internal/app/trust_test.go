package app_test

import (
	"context"
	"errors"
	"maps"
	"testing"

	"trustline/internal/app"
	"trustline/internal/domain"
)

// seedHistory creates a product and appends one event per state in path,
// bypassing validation so tests can build arbitrary histories.
func seedHistory(t *testing.T, repo *mockRepo, path ...domain.State) domain.Product {
	t.Helper()
	ctx := context.Background()

	p := domain.NewProduct("p-1", "s-1", "Wallet", "")
	if err := repo.CreateProduct(ctx, p); err != nil {
		t.Fatalf("creating product: %v", err)
	}

	prev := domain.StateListed
	version := p.Version
	for i, state := range path {
		ev := domain.LifecycleEvent{
			ID:            p.ID + "-ev-" + string(rune('a'+i)),
			ProductID:     p.ID,
			SellerID:      p.SellerID,
			PreviousState: prev,
			CurrentState:  state,
		}
		if _, err := repo.AppendEvent(ctx, ev, version); err != nil {
			t.Fatalf("appending event: %v", err)
		}
		prev = state
		version++
	}

	return p
}

func TestCompute_CleanHistory(t *testing.T) {
	repo := newMockRepo()
	snaps := newMockSnapshots()
	engine := app.NewTrustEngine(repo, snaps)

	seedHistory(t, repo, domain.StatePurchased, domain.StateDelivered, domain.StateReviewed)

	score, reasons, err := engine.Compute(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if score != 100 {
		t.Errorf("score = %d, want 100", score)
	}
	if len(reasons) != 0 {
		t.Errorf("reasons = %v, want empty", reasons)
	}
}

func TestCompute_FraudAndReturns(t *testing.T) {
	repo := newMockRepo()
	snaps := newMockSnapshots()
	engine := app.NewTrustEngine(repo, snaps)

	// Two returned events and one flagged_fraud: 100 - 30 - 20 = 50.
	seedHistory(t, repo,
		domain.StateReturned,
		domain.StateReturned,
		domain.StateFlaggedFraud,
	)

	score, reasons, err := engine.Compute(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if score != 50 {
		t.Errorf("score = %d, want 50", score)
	}
	if reasons[domain.ReasonFlaggedFraud] != -30 {
		t.Errorf("reasons[flagged_fraud] = %d, want -30", reasons[domain.ReasonFlaggedFraud])
	}
	if reasons[domain.ReasonMultipleReturns] != -20 {
		t.Errorf("reasons[multiple_returns] = %d, want -20", reasons[domain.ReasonMultipleReturns])
	}
	if len(reasons) != 2 {
		t.Errorf("got %d reasons, want 2", len(reasons))
	}
}

func TestCompute_SingleReturn_BelowThreshold(t *testing.T) {
	repo := newMockRepo()
	snaps := newMockSnapshots()
	engine := app.NewTrustEngine(repo, snaps)

	seedHistory(t, repo, domain.StatePurchased, domain.StateReturned)

	score, reasons, err := engine.Compute(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if score != 100 {
		t.Errorf("score = %d, want 100", score)
	}
	if len(reasons) != 0 {
		t.Errorf("reasons = %v, want empty", reasons)
	}
}

func TestCompute_FraudOnly(t *testing.T) {
	repo := newMockRepo()
	snaps := newMockSnapshots()
	engine := app.NewTrustEngine(repo, snaps)

	seedHistory(t, repo, domain.StateReturned, domain.StateFlaggedFraud)

	score, reasons, err := engine.Compute(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if score != 70 {
		t.Errorf("score = %d, want 70", score)
	}
	if len(reasons) != 1 {
		t.Errorf("got %d reasons, want 1", len(reasons))
	}
}

func TestCompute_EmptyHistory(t *testing.T) {
	repo := newMockRepo()
	snaps := newMockSnapshots()
	engine := app.NewTrustEngine(repo, snaps)

	seedHistory(t, repo)

	score, reasons, err := engine.Compute(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if score != 100 {
		t.Errorf("score = %d, want 100", score)
	}
	if len(reasons) != 0 {
		t.Errorf("reasons = %v, want empty", reasons)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	repo := newMockRepo()
	snaps := newMockSnapshots()
	engine := app.NewTrustEngine(repo, snaps)

	seedHistory(t, repo,
		domain.StateReturned,
		domain.StateReturned,
		domain.StateFlaggedFraud,
	)

	score1, reasons1, err := engine.Compute(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("first Compute failed: %v", err)
	}
	score2, reasons2, err := engine.Compute(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("second Compute failed: %v", err)
	}

	if score1 != score2 {
		t.Errorf("scores differ: %d vs %d", score1, score2)
	}
	if !maps.Equal(reasons1, reasons2) {
		t.Errorf("reasons differ: %v vs %v", reasons1, reasons2)
	}
}

func TestCompute_PersistsSnapshot(t *testing.T) {
	repo := newMockRepo()
	snaps := newMockSnapshots()
	engine := app.NewTrustEngine(repo, snaps)
	ctx := context.Background()

	p := seedHistory(t, repo, domain.StateReturned, domain.StateFlaggedFraud)

	if _, _, err := engine.Compute(ctx, p.ID); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	snap, err := snaps.GetSnapshot(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if snap.Score != 70 {
		t.Errorf("snapshot Score = %d, want 70", snap.Score)
	}
	if snap.SellerID != p.SellerID {
		t.Errorf("snapshot SellerID = %q, want %q", snap.SellerID, p.SellerID)
	}
	if snap.LastUpdated.IsZero() {
		t.Error("snapshot LastUpdated should not be zero")
	}

	// Recomputation overwrites, never appends.
	if _, _, err := engine.Compute(ctx, p.ID); err != nil {
		t.Fatalf("second Compute failed: %v", err)
	}
	if snaps.saves != 2 {
		t.Errorf("saves = %d, want 2", snaps.saves)
	}
	if len(snaps.snapshots) != 1 {
		t.Errorf("stored snapshots = %d, want 1", len(snaps.snapshots))
	}
}

func TestCompute_NotFound(t *testing.T) {
	engine := app.NewTrustEngine(newMockRepo(), newMockSnapshots())

	_, _, err := engine.Compute(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}
