package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"trustline/internal/app"
	"trustline/internal/domain"
)

// ProductResponse is the API representation of a product.
type ProductResponse struct {
	ID        string `json:"product_id" doc:"Unique identifier"`
	SellerID  string `json:"seller_id" doc:"Owning seller"`
	Title     string `json:"title" doc:"Display title"`
	ImageURL  string `json:"image_url,omitempty" doc:"Listing image"`
	State     string `json:"current_state" doc:"Lifecycle state"`
	Version   int64  `json:"version" doc:"Optimistic concurrency token"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

// EventResponse is the API representation of a lifecycle event.
type EventResponse struct {
	EventID       string         `json:"event_id" doc:"Unique identifier"`
	ProductID     string         `json:"product_id" doc:"Product this event belongs to"`
	SellerID      string         `json:"seller_id" doc:"Seller that requested the transition"`
	PreviousState string         `json:"previous_state" doc:"State before the transition"`
	CurrentState  string         `json:"current_state" doc:"State after the transition"`
	Timestamp     string         `json:"timestamp" doc:"Transition timestamp (ISO 8601)"`
	Metadata      map[string]any `json:"metadata,omitempty" doc:"Opaque caller-supplied payload"`
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID,
		SellerID:  p.SellerID,
		Title:     p.Title,
		ImageURL:  p.ImageURL,
		State:     string(p.State),
		Version:   p.Version,
		CreatedAt: p.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func toEventResponse(ev domain.LifecycleEvent) EventResponse {
	return EventResponse{
		EventID:       ev.ID,
		ProductID:     ev.ProductID,
		SellerID:      ev.SellerID,
		PreviousState: string(ev.PreviousState),
		CurrentState:  string(ev.CurrentState),
		Timestamp:     ev.Timestamp.Format(time.RFC3339Nano),
		Metadata:      ev.Metadata,
	}
}

// --- Create Product ---

type CreateProductInput struct {
	Body struct {
		SellerID string `json:"seller_id" minLength:"1" maxLength:"100" doc:"Owning seller"`
		Title    string `json:"title" minLength:"1" maxLength:"255" doc:"Display title"`
		ImageURL string `json:"image_url,omitempty" maxLength:"2048" doc:"Listing image URL"`
	}
}

type CreateProductOutput struct {
	Body ProductResponse
}

// --- Get Product ---

type GetProductInput struct {
	ID string `path:"id" doc:"Product ID"`
}

type GetProductOutput struct {
	Body ProductResponse
}

// --- List Products ---

type ListProductsInput struct {
	State  string `query:"state" required:"false" doc:"Filter by lifecycle state"`
	Limit  int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListProductsOutput struct {
	Body []ProductResponse
}

// --- Transition ---

type TransitionInput struct {
	ID   string `path:"id" doc:"Product ID"`
	Body struct {
		SellerID string         `json:"seller_id" minLength:"1" maxLength:"100" doc:"Seller requesting the transition"`
		NewState string         `json:"new_state" doc:"Requested lifecycle state" enum:"purchased,delivered,reviewed,returned,flagged_fraud"`
		Metadata map[string]any `json:"metadata,omitempty" doc:"Opaque payload stored verbatim on the event"`
	}
}

type TransitionOutput struct {
	Body EventResponse
}

// --- Get Lifecycle ---

type GetLifecycleInput struct {
	ID string `path:"id" doc:"Product ID"`
}

type GetLifecycleOutput struct {
	Body []EventResponse
}

// --- Get Trust Score ---

type GetTrustScoreInput struct {
	ID string `path:"id" doc:"Product ID"`
}

type GetTrustScoreOutput struct {
	Body struct {
		ProductID string         `json:"product_id" doc:"Product the score belongs to"`
		Score     int            `json:"score" minimum:"0" maximum:"100" doc:"Trust score"`
		Reasons   map[string]int `json:"reasons" doc:"Point deduction per triggered rule"`
	}
}

// Register adds all product API routes to the Huma API.
func Register(api huma.API, svc *app.LifecycleService, engine *app.TrustEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "create-product",
		Method:      http.MethodPost,
		Path:        "/api/v1/products",
		Summary:     "Register a new product in the listed state",
		Tags:        []string{"Products"},
	}, func(ctx context.Context, input *CreateProductInput) (*CreateProductOutput, error) {
		p, err := svc.CreateProduct(ctx, input.Body.SellerID, input.Body.Title, input.Body.ImageURL)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateProductOutput{Body: toProductResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-product",
		Method:      http.MethodGet,
		Path:        "/api/v1/products/{id}",
		Summary:     "Get a product by ID",
		Tags:        []string{"Products"},
	}, func(ctx context.Context, input *GetProductInput) (*GetProductOutput, error) {
		p, err := svc.GetProduct(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetProductOutput{Body: toProductResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-products",
		Method:      http.MethodGet,
		Path:        "/api/v1/products",
		Summary:     "List products",
		Tags:        []string{"Products"},
	}, func(ctx context.Context, input *ListProductsInput) (*ListProductsOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.State != "" {
			s := domain.State(input.State)
			filter.State = &s
		}

		products, err := svc.ListProducts(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]ProductResponse, len(products))
		for i, p := range products {
			resp[i] = toProductResponse(p)
		}
		return &ListProductsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-product",
		Method:      http.MethodPost,
		Path:        "/api/v1/products/{id}/transitions",
		Summary:     "Request a lifecycle state transition",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *TransitionInput) (*TransitionOutput, error) {
		ev, err := svc.Transition(ctx, input.ID, input.Body.SellerID, domain.State(input.Body.NewState), input.Body.Metadata)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransitionOutput{Body: toEventResponse(ev)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-lifecycle",
		Method:      http.MethodGet,
		Path:        "/api/v1/products/{id}/lifecycle",
		Summary:     "Get the full ordered lifecycle history",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *GetLifecycleInput) (*GetLifecycleOutput, error) {
		events, err := svc.GetLifecycle(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]EventResponse, len(events))
		for i, ev := range events {
			resp[i] = toEventResponse(ev)
		}
		return &GetLifecycleOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-trust-score",
		Method:      http.MethodGet,
		Path:        "/api/v1/products/{id}/trust-score",
		Summary:     "Recompute and return the trust score",
		Tags:        []string{"Trust"},
	}, func(ctx context.Context, input *GetTrustScoreInput) (*GetTrustScoreOutput, error) {
		score, reasons, err := engine.Compute(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &GetTrustScoreOutput{}
		out.Body.ProductID = input.ID
		out.Body.Score = score
		out.Body.Reasons = reasons
		return out, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrProductNotFound) {
		return huma.Error404NotFound("product not found")
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var confErr *domain.ConflictError
	if errors.As(err, &confErr) {
		return huma.Error409Conflict(confErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
