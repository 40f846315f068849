package domain

import "context"

// ProductRepository defines the persistence contract for the product
// registry and its append-only event log.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, error)

	// AppendEvent atomically persists ev and advances the product to
	// ev.CurrentState, conditioned on the product still being at
	// expectedVersion. A stale version yields a ConflictError and no
	// side effect: event append and registry advance succeed or fail
	// together. Returns the advanced product.
	AppendEvent(ctx context.Context, ev LifecycleEvent, expectedVersion int64) (Product, error)

	// ListEvents returns the full event sequence for a product ordered
	// by timestamp ascending, ties broken by append order.
	ListEvents(ctx context.Context, productID string) ([]LifecycleEvent, error)
}

// SnapshotStore persists the latest trust score projection per product
// with overwrite semantics.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap TrustScoreSnapshot) error
	GetSnapshot(ctx context.Context, productID string) (TrustScoreSnapshot, error)
}

// ListFilter holds optional criteria for listing products.
type ListFilter struct {
	State  *State
	Limit  int
	Offset int
}

// TransitionValidator decides whether a requested state is reachable from
// the current one and returns the resulting state.
type TransitionValidator interface {
	Apply(ctx context.Context, current, requested State) (State, error)
}

// EventPublisher defines the contract for emitting accepted lifecycle
// events to interested consumers (e.g. async score recomputation).
type EventPublisher interface {
	Publish(ctx context.Context, ev LifecycleEvent) error
}
