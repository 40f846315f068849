package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trustline/internal/domain"
)

// LifecycleService coordinates product lifecycle transitions: it reads
// the current registry state, validates the requested move, and commits
// the event append together with the version-conditioned registry
// advance as one atomic unit.
type LifecycleService struct {
	repo      domain.ProductRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
}

// NewLifecycleService creates a service with the given adapters.
func NewLifecycleService(repo domain.ProductRepository, publisher domain.EventPublisher, validator domain.TransitionValidator) *LifecycleService {
	return &LifecycleService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
	}
}

// CreateProduct registers a new product in the initial "listed" state.
// Products are never auto-created on first transition; this is the only
// way one comes into existence.
func (s *LifecycleService) CreateProduct(ctx context.Context, sellerID, title, imageURL string) (domain.Product, error) {
	p := domain.NewProduct(uuid.NewString(), sellerID, title, imageURL)

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return domain.Product{}, fmt.Errorf("creating product: %w", err)
	}

	return p, nil
}

// GetProduct returns a product by its unique identifier.
func (s *LifecycleService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts returns products matching the given filter.
func (s *LifecycleService) ListProducts(ctx context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

// Transition moves a product to the requested state. On success exactly
// one lifecycle event has been appended and the registry advanced by one
// version; on any failure neither has happened. A lost race surfaces as
// a domain.ConflictError for the caller to retry: retrying internally
// with fresh state would report the loser's request as an invalid
// transition and mask the race.
func (s *LifecycleService) Transition(ctx context.Context, productID, sellerID string, requested domain.State, metadata domain.Metadata) (domain.LifecycleEvent, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.LifecycleEvent{}, err
	}

	next, err := s.validator.Apply(ctx, p.State, requested)
	if err != nil {
		return domain.LifecycleEvent{}, err
	}

	ev := domain.LifecycleEvent{
		ID:            uuid.NewString(),
		ProductID:     productID,
		SellerID:      sellerID,
		PreviousState: p.State,
		CurrentState:  next,
		Timestamp:     time.Now().UTC(),
		Metadata:      metadata,
	}

	if _, err := s.repo.AppendEvent(ctx, ev, p.Version); err != nil {
		return domain.LifecycleEvent{}, err
	}

	// The transition is already committed; a publish failure only delays
	// async score recomputation, it must not undo the event.
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publishing lifecycle event failed",
			"event_id", ev.ID,
			"product_id", ev.ProductID,
			"error", err,
		)
	}

	return ev, nil
}

// GetLifecycle returns the full ordered event sequence for a product.
// The product must exist; an existing product with no recorded
// transitions yields an empty sequence, not an error.
func (s *LifecycleService) GetLifecycle(ctx context.Context, productID string) ([]domain.LifecycleEvent, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	return s.repo.ListEvents(ctx, productID)
}
