package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trustline/internal/domain"
)

const tracerName = "trustline/internal/adapter/otel"

// TracingRepository wraps a domain.ProductRepository and
// domain.SnapshotStore with OpenTelemetry tracing. Each method creates a
// span with semantic attributes and records errors.
type TracingRepository struct {
	next interface {
		domain.ProductRepository
		domain.SnapshotStore
	}
	tracer trace.Tracer
}

// Compile-time checks: TracingRepository implements both persistence ports.
var (
	_ domain.ProductRepository = (*TracingRepository)(nil)
	_ domain.SnapshotStore     = (*TracingRepository)(nil)
)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next interface {
	domain.ProductRepository
	domain.SnapshotStore
}) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) CreateProduct(ctx context.Context, p domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.CreateProduct",
		trace.WithAttributes(
			attribute.String("product.id", p.ID),
			attribute.String("product.seller_id", p.SellerID),
		),
	)
	defer span.End()

	err := r.next.CreateProduct(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetProduct",
		trace.WithAttributes(attribute.String("product.id", id)),
	)
	defer span.End()

	p, err := r.next.GetProduct(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return p, err
}

func (r *TracingRepository) ListProducts(ctx context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ListProducts",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.State != nil {
		span.SetAttributes(attribute.String("filter.state", string(*filter.State)))
	}

	products, err := r.next.ListProducts(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(products)))
	}
	return products, err
}

func (r *TracingRepository) AppendEvent(ctx context.Context, ev domain.LifecycleEvent, expectedVersion int64) (domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.AppendEvent",
		trace.WithAttributes(
			attribute.String("product.id", ev.ProductID),
			attribute.String("event.id", ev.ID),
			attribute.String("event.previous_state", string(ev.PreviousState)),
			attribute.String("event.current_state", string(ev.CurrentState)),
			attribute.Int64("product.expected_version", expectedVersion),
		),
	)
	defer span.End()

	p, err := r.next.AppendEvent(ctx, ev, expectedVersion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return p, err
}

func (r *TracingRepository) ListEvents(ctx context.Context, productID string) ([]domain.LifecycleEvent, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ListEvents",
		trace.WithAttributes(attribute.String("product.id", productID)),
	)
	defer span.End()

	events, err := r.next.ListEvents(ctx, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(events)))
	}
	return events, err
}

func (r *TracingRepository) SaveSnapshot(ctx context.Context, snap domain.TrustScoreSnapshot) error {
	ctx, span := r.tracer.Start(ctx, "SnapshotStore.SaveSnapshot",
		trace.WithAttributes(
			attribute.String("product.id", snap.ProductID),
			attribute.Int("score.value", snap.Score),
		),
	)
	defer span.End()

	err := r.next.SaveSnapshot(ctx, snap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) GetSnapshot(ctx context.Context, productID string) (domain.TrustScoreSnapshot, error) {
	ctx, span := r.tracer.Start(ctx, "SnapshotStore.GetSnapshot",
		trace.WithAttributes(attribute.String("product.id", productID)),
	)
	defer span.End()

	snap, err := r.next.GetSnapshot(ctx, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return snap, err
}
