package otel_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	adapter "trustline/internal/adapter/otel"
	"trustline/internal/domain"
)

// --- Test tracer setup ---

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

// assertAttribute fails unless the span carries the given attribute value.
func assertAttribute(t *testing.T, span tracetest.SpanStub, key, want string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			if got := attr.Value.Emit(); got != want {
				t.Errorf("attribute %q = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Errorf("attribute %q not found on span %q", key, span.Name)
}

// --- Mock repository ---

type mockRepo struct {
	products  map[string]domain.Product
	events    map[string][]domain.LifecycleEvent
	snapshots map[string]domain.TrustScoreSnapshot
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		products:  make(map[string]domain.Product),
		events:    make(map[string][]domain.LifecycleEvent),
		snapshots: make(map[string]domain.TrustScoreSnapshot),
	}
}

func (m *mockRepo) CreateProduct(_ context.Context, p domain.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *mockRepo) GetProduct(_ context.Context, id string) (domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (m *mockRepo) ListProducts(_ context.Context, _ domain.ListFilter) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepo) AppendEvent(_ context.Context, ev domain.LifecycleEvent, expectedVersion int64) (domain.Product, error) {
	p, ok := m.products[ev.ProductID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if p.Version != expectedVersion {
		return domain.Product{}, &domain.ConflictError{ProductID: ev.ProductID, ExpectedVersion: expectedVersion}
	}
	m.events[ev.ProductID] = append(m.events[ev.ProductID], ev)
	p.State = ev.CurrentState
	p.Version++
	m.products[ev.ProductID] = p
	return p, nil
}

func (m *mockRepo) ListEvents(_ context.Context, productID string) ([]domain.LifecycleEvent, error) {
	return m.events[productID], nil
}

func (m *mockRepo) SaveSnapshot(_ context.Context, snap domain.TrustScoreSnapshot) error {
	m.snapshots[snap.ProductID] = snap
	return nil
}

func (m *mockRepo) GetSnapshot(_ context.Context, productID string) (domain.TrustScoreSnapshot, error) {
	snap, ok := m.snapshots[productID]
	if !ok {
		return domain.TrustScoreSnapshot{}, domain.ErrSnapshotNotFound
	}
	return snap, nil
}

// --- Tests ---

func TestTracingRepository_CreateProduct_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	p := domain.NewProduct("p-1", "s-1", "Wallet", "")
	if err := repo.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "ProductRepository.CreateProduct" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "ProductRepository.CreateProduct")
	}

	assertAttribute(t, spans[0], "product.id", "p-1")
	assertAttribute(t, spans[0], "product.seller_id", "s-1")
}

func TestTracingRepository_GetProduct_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	_, err := repo.GetProduct(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}

	if len(spans[0].Events) == 0 {
		t.Error("expected error event on span")
	}
}

func TestTracingRepository_AppendEvent_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	p := domain.NewProduct("p-1", "s-1", "Wallet", "")
	inner.products["p-1"] = p

	ev := domain.LifecycleEvent{
		ID:            "ev-1",
		ProductID:     "p-1",
		SellerID:      "s-1",
		PreviousState: domain.StateListed,
		CurrentState:  domain.StatePurchased,
	}
	if _, err := repo.AppendEvent(context.Background(), ev, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "ProductRepository.AppendEvent" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "ProductRepository.AppendEvent")
	}

	assertAttribute(t, spans[0], "event.current_state", "purchased")
	assertAttribute(t, spans[0], "product.expected_version", "1")
}

func TestTracingRepository_AppendEvent_RecordsConflict(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.products["p-1"] = domain.NewProduct("p-1", "s-1", "Wallet", "")

	ev := domain.LifecycleEvent{ID: "ev-1", ProductID: "p-1", CurrentState: domain.StatePurchased}
	_, err := repo.AppendEvent(context.Background(), ev, 99)
	var confErr *domain.ConflictError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}

func TestTracingRepository_ListEvents_RecordsResultCount(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.events["p-1"] = []domain.LifecycleEvent{
		{ID: "ev-1", ProductID: "p-1"},
		{ID: "ev-2", ProductID: "p-1"},
	}

	events, err := repo.ListEvents(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	assertAttribute(t, spans[0], "result.count", "2")
}

func TestTracingRepository_SaveSnapshot_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	snap := domain.TrustScoreSnapshot{ProductID: "p-1", SellerID: "s-1", Score: 70}
	if err := repo.SaveSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "SnapshotStore.SaveSnapshot" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "SnapshotStore.SaveSnapshot")
	}

	assertAttribute(t, spans[0], "score.value", "70")
}
