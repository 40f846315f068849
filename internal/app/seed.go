package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"trustline/internal/domain"
)

// seedPath is the lifecycle walked by each demo product.
var seedPath = []domain.State{
	domain.StatePurchased,
	domain.StateDelivered,
	domain.StateReviewed,
}

// SeedDemoData inserts a handful of demo products and walks each through
// listed → purchased → delivered → reviewed, so a fresh install has
// lifecycle history to look at. Intended for local development only.
func (s *LifecycleService) SeedDemoData(ctx context.Context, count int) error {
	for i := range count {
		sellerID := uuid.NewString()
		title := fmt.Sprintf("Product %d", i+1)
		imageURL := fmt.Sprintf("https://example.com/image%d.jpg", i+1)

		p, err := s.CreateProduct(ctx, sellerID, title, imageURL)
		if err != nil {
			return fmt.Errorf("seeding product %d: %w", i+1, err)
		}

		for _, next := range seedPath {
			meta := domain.Metadata{"channel": "web", "country": "IN"}
			if _, err := s.Transition(ctx, p.ID, sellerID, next, meta); err != nil {
				return fmt.Errorf("seeding transition to %q for product %d: %w", next, i+1, err)
			}
		}
	}

	return nil
}
