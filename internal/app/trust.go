package app

import (
	"context"
	"fmt"
	"time"

	"trustline/internal/domain"
)

// TrustEngine recomputes a product's trust score from its full event
// history and persists the result as the latest snapshot. Scoring is a
// deterministic function of the ordered event sequence: recomputing on
// an unchanged log yields identical output.
type TrustEngine struct {
	repo      domain.ProductRepository
	snapshots domain.SnapshotStore
}

// NewTrustEngine creates an engine with the given adapters.
func NewTrustEngine(repo domain.ProductRepository, snapshots domain.SnapshotStore) *TrustEngine {
	return &TrustEngine{
		repo:      repo,
		snapshots: snapshots,
	}
}

// Compute recomputes the trust score for a product and overwrites its
// snapshot. The snapshot is a read optimization only; Compute never
// consults it.
func (e *TrustEngine) Compute(ctx context.Context, productID string) (int, map[string]int, error) {
	p, err := e.repo.GetProduct(ctx, productID)
	if err != nil {
		return 0, nil, err
	}

	events, err := e.repo.ListEvents(ctx, productID)
	if err != nil {
		return 0, nil, fmt.Errorf("loading event history: %w", err)
	}

	score, reasons := scoreHistory(events)

	snap := domain.TrustScoreSnapshot{
		ProductID:   p.ID,
		SellerID:    p.SellerID,
		Score:       score,
		Reasons:     reasons,
		LastUpdated: time.Now().UTC(),
	}
	if err := e.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return 0, nil, fmt.Errorf("saving trust score snapshot: %w", err)
	}

	return score, reasons, nil
}

// scoreHistory applies the scoring rules in fixed order, each
// independently subtractive from a base of 100, clamped to [0, 100].
func scoreHistory(events []domain.LifecycleEvent) (int, map[string]int) {
	score := 100
	reasons := make(map[string]int)

	flagged := false
	returns := 0
	for _, ev := range events {
		switch ev.CurrentState {
		case domain.StateFlaggedFraud:
			flagged = true
		case domain.StateReturned:
			returns++
		}
	}

	if flagged {
		score += domain.DeltaFlaggedFraud
		reasons[domain.ReasonFlaggedFraud] = domain.DeltaFlaggedFraud
	}

	if returns >= domain.MultipleReturnsThreshold {
		score += domain.DeltaMultipleReturns
		reasons[domain.ReasonMultipleReturns] = domain.DeltaMultipleReturns
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return score, reasons
}
