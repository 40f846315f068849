package domain

import "time"

// Trust score rules: each reason name maps to a fixed point delta applied
// against a base of 100, floored at 0.
const (
	ReasonFlaggedFraud    = "flagged_fraud"
	ReasonMultipleReturns = "multiple_returns"

	DeltaFlaggedFraud    = -30
	DeltaMultipleReturns = -20

	// MultipleReturnsThreshold is the number of returned events at which
	// the multiple_returns deduction applies.
	MultipleReturnsThreshold = 2
)

// TrustScoreSnapshot is a derived projection of a product's trust score.
// It is fully recomputable from the event log at any time and is
// overwritten on each recomputation. Consumers must not rely on it being
// fresh; a guaranteed-current score requires recomputation.
type TrustScoreSnapshot struct {
	ProductID   string
	SellerID    string
	Score       int
	Reasons     map[string]int
	LastUpdated time.Time
}
