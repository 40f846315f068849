package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"trustline/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// TransitionJobArgs carries the data needed to process an accepted
// lifecycle transition asynchronously. River serializes this as JSON
// into its job queue table. It is a snapshot of the event at publish
// time, so the worker only has to query for what it recomputes.
type TransitionJobArgs struct {
	EventID       string `json:"event_id"`
	ProductID     string `json:"product_id"`
	SellerID      string `json:"seller_id"`
	PreviousState string `json:"previous_state"`
	CurrentState  string `json:"current_state"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (TransitionJobArgs) Kind() string { return "lifecycle.transitioned" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a lifecycle transition as an async job in River.
func (p *Publisher) Publish(ctx context.Context, ev domain.LifecycleEvent) error {
	_, err := p.client.Insert(ctx, TransitionJobArgs{
		EventID:       ev.ID,
		ProductID:     ev.ProductID,
		SellerID:      ev.SellerID,
		PreviousState: string(ev.PreviousState),
		CurrentState:  string(ev.CurrentState),
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing transition job: %w", err)
	}
	return nil
}
