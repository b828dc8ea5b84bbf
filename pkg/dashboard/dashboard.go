// Package dashboard holds the client-side state behind the inventory
// dashboard: a product slice, an analytics slice and the helpers the views
// use to shape chart data.
package dashboard

import (
	"context"
	"errors"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
	"github.com/cloud-wave-best-zizon/stock-tracker/pkg/client"
)

// API is the part of the REST client the stores depend on.
type API interface {
	ListProducts(ctx context.Context, f client.Filters) (*domain.ProductPage, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, in client.ProductPayload) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, in client.ProductPayload) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	StockSummary(ctx context.Context) (*domain.StockSummary, error)
	StockByProduct(ctx context.Context) ([]domain.StockLevel, error)
}

var _ API = (*client.Client)(nil)

// errorMessage prefers the server's own message over the action fallback.
func errorMessage(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
