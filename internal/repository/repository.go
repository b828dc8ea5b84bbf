package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

// ProductRepository is implemented by every storage driver. Lookups of an
// unknown id return domain.ErrProductNotFound; other failures are wrapped
// in *domain.StorageError.
type ProductRepository interface {
	// List returns one page of matching products and the total match count.
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	// Update writes only the fields present in patch and returns the row as
	// stored afterwards.
	Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, lowStockThreshold int) (*domain.StockSummary, error)
	// StockLevels returns every product ordered by quantity, highest first.
	StockLevels(ctx context.Context) ([]domain.Product, error)
}

// UserRepository stores users keyed by email.
type UserRepository interface {
	// Upsert creates the user or refreshes username, googleId and any
	// non-nil name or image of the existing row with the same email.
	Upsert(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// storageErr logs a failed storage call and wraps it for the service layer.
func storageErr(logger *zap.Logger, op string, err error) error {
	logger.Error("Storage operation failed", zap.String("op", op), zap.Error(err))
	return &domain.StorageError{Op: op, Err: err}
}
