package dashboard

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

// Slice sizes used by the dashboard views.
const (
	TopProductsLimit = 5
	ValueChartLimit  = 6
	TrendLimit       = 8
)

type AnalyticsState struct {
	Summary               *domain.StockSummary
	Items                 []domain.StockLevel
	LoadingSummary        bool
	LoadingStockByProduct bool
	Error                 string
}

type AnalyticsStore struct {
	api    API
	logger *zap.Logger

	mu    sync.Mutex
	state AnalyticsState
}

func NewAnalyticsStore(api API, logger *zap.Logger) *AnalyticsStore {
	return &AnalyticsStore{api: api, logger: logger, state: AnalyticsState{Items: []domain.StockLevel{}}}
}

func (s *AnalyticsStore) State() AnalyticsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Items = append([]domain.StockLevel(nil), s.state.Items...)
	if s.state.Summary != nil {
		summary := *s.state.Summary
		st.Summary = &summary
	}
	return st
}

func (s *AnalyticsStore) update(fn func(st *AnalyticsState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

func (s *AnalyticsStore) FetchSummary(ctx context.Context) error {
	s.update(func(st *AnalyticsState) {
		st.LoadingSummary = true
		st.Error = ""
	})
	return s.loadSummary(ctx)
}

func (s *AnalyticsStore) FetchStockByProduct(ctx context.Context) error {
	s.update(func(st *AnalyticsState) {
		st.LoadingStockByProduct = true
		st.Error = ""
	})
	return s.loadStockByProduct(ctx)
}

// Refresh loads both analytics endpoints concurrently. Each load runs to
// completion even when the other fails.
func (s *AnalyticsStore) Refresh(ctx context.Context) error {
	s.update(func(st *AnalyticsState) {
		st.LoadingSummary = true
		st.LoadingStockByProduct = true
		st.Error = ""
	})

	var g errgroup.Group
	g.Go(func() error { return s.loadSummary(ctx) })
	g.Go(func() error { return s.loadStockByProduct(ctx) })
	if err := g.Wait(); err != nil {
		s.logger.Warn("Analytics refresh failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *AnalyticsStore) loadSummary(ctx context.Context) error {
	summary, err := s.api.StockSummary(ctx)

	s.update(func(st *AnalyticsState) {
		st.LoadingSummary = false
		if err != nil {
			st.Error = errorMessage(err, "Failed to fetch stock summary")
			return
		}
		st.Summary = summary
	})
	return err
}

func (s *AnalyticsStore) loadStockByProduct(ctx context.Context) error {
	items, err := s.api.StockByProduct(ctx)

	s.update(func(st *AnalyticsState) {
		st.LoadingStockByProduct = false
		if err != nil {
			st.Error = errorMessage(err, "Failed to fetch stock analytics")
			return
		}
		if items == nil {
			items = []domain.StockLevel{}
		}
		st.Items = items
	})
	return err
}

// TopByValue returns the n items with the highest inventory value.
func TopByValue(items []domain.StockLevel, n int) []domain.StockLevel {
	out := append([]domain.StockLevel(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].InventoryValue > out[j].InventoryValue
	})
	return head(out, n)
}

// TrendByUpdate returns the n least recently updated items, oldest first.
func TrendByUpdate(items []domain.StockLevel, n int) []domain.StockLevel {
	out := append([]domain.StockLevel(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return head(out, n)
}

func head(items []domain.StockLevel, n int) []domain.StockLevel {
	if n < 0 {
		n = 0
	}
	if n < len(items) {
		return items[:n]
	}
	return items
}
