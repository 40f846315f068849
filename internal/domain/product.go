package domain

import "time"

// State represents the lifecycle state of a product.
type State string

const (
	StateListed       State = "listed"
	StatePurchased    State = "purchased"
	StateDelivered    State = "delivered"
	StateReviewed     State = "reviewed"
	StateReturned     State = "returned"
	StateFlaggedFraud State = "flagged_fraud"
)

// Transition defines a valid state change from Src to Dst.
type Transition struct {
	Src State
	Dst State
}

// Transitions defines all valid state changes in the product lifecycle.
// This is domain knowledge consumed by the FSM adapter. flagged_fraud is
// terminal: it has no outgoing edges.
var Transitions = []Transition{
	{Src: StateListed, Dst: StatePurchased},
	{Src: StatePurchased, Dst: StateDelivered},
	{Src: StatePurchased, Dst: StateReturned},
	{Src: StateDelivered, Dst: StateReviewed},
	{Src: StateDelivered, Dst: StateReturned},
	{Src: StateReviewed, Dst: StateFlaggedFraud},
	{Src: StateReturned, Dst: StateFlaggedFraud},
}

// States is the complete set of defined lifecycle states.
var States = []State{
	StateListed,
	StatePurchased,
	StateDelivered,
	StateReviewed,
	StateReturned,
	StateFlaggedFraud,
}

// KnownState reports whether s belongs to the defined state set.
// A stored state outside this set is a data-integrity fault, not a
// validation failure.
func KnownState(s State) bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

// Product is the core domain entity: the materialized current-state view
// of a physical item moving through the commerce lifecycle. Version is an
// optimistic-concurrency token, incremented on every accepted transition.
type Product struct {
	ID        string
	SellerID  string
	Title     string
	ImageURL  string
	State     State
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProduct creates a product in the initial "listed" state at version 1.
func NewProduct(id, sellerID, title, imageURL string) Product {
	now := time.Now().UTC()
	return Product{
		ID:        id,
		SellerID:  sellerID,
		Title:     title,
		ImageURL:  imageURL,
		State:     StateListed,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
