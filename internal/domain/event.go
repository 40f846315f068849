package domain

import "time"

// Metadata is an opaque key/value bag attached to a lifecycle event by
// upstream producers (counterfeit detection, review classifiers, fraud
// scoring). The core stores it verbatim and never interprets it.
type Metadata map[string]any

// LifecycleEvent is an immutable fact: one accepted state transition.
// Seq is assigned by the event log in append order; the ordered sequence
// of events for a product is its full audit trail and the sole source of
// truth for history-derived computations.
type LifecycleEvent struct {
	ID            string
	Seq           int64
	ProductID     string
	SellerID      string
	PreviousState State
	CurrentState  State
	Timestamp     time.Time
	Metadata      Metadata
}
