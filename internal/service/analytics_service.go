package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/repository"
)

type AnalyticsService struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewAnalyticsService(products repository.ProductRepository, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{products: products, logger: logger}
}

func (s *AnalyticsService) StockSummary(ctx context.Context) (*domain.StockSummary, error) {
	summary, err := s.products.Summary(ctx, domain.LowStockThreshold)
	if err != nil {
		s.logger.Error("Failed to summarize stock", zap.Error(err))
		return nil, err
	}
	return summary, nil
}

// StockByProduct returns every product with its inventory value, highest
// quantity first. Chart-specific slicing is left to clients.
func (s *AnalyticsService) StockByProduct(ctx context.Context) ([]domain.StockLevel, error) {
	products, err := s.products.StockLevels(ctx)
	if err != nil {
		s.logger.Error("Failed to load stock levels", zap.Error(err))
		return nil, err
	}

	levels := make([]domain.StockLevel, 0, len(products))
	for _, p := range products {
		levels = append(levels, domain.NewStockLevel(p))
	}
	return levels, nil
}
