package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
	"github.com/cloud-wave-best-zizon/stock-tracker/pkg/client"
)

type Pagination struct {
	Total      int64
	TotalPages int
}

// ProductState is a snapshot of the product slice.
type ProductState struct {
	Products   []domain.Product
	Selected   *domain.Product
	Loading    bool
	Submitting bool
	Error      string
	Filters    client.Filters
	Pagination Pagination
}

// ProductStore owns the product slice. Mutations merge their result into
// the cached list; they never trigger a refetch.
type ProductStore struct {
	api       API
	logger    *zap.Logger
	debouncer *Debouncer

	mu        sync.Mutex
	state     ProductState
	listSeq   uint64
	listeners []func(ProductState)
}

type ProductStoreOption func(*ProductStore)

// WithSearchDelay overrides DefaultSearchDelay.
func WithSearchDelay(d time.Duration) ProductStoreOption {
	return func(s *ProductStore) { s.debouncer = NewDebouncer(d) }
}

func NewProductStore(api API, logger *zap.Logger, opts ...ProductStoreOption) *ProductStore {
	s := &ProductStore{
		api:       api,
		logger:    logger,
		debouncer: NewDebouncer(DefaultSearchDelay),
		state:     ProductState{Products: []domain.Product{}, Filters: client.DefaultFilters()},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy that is safe to read while actions run.
func (s *ProductStore) State() ProductState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Subscribe registers fn to receive every new state. It returns a func
// that removes the subscription.
func (s *ProductStore) Subscribe(fn func(ProductState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners[idx] = nil
	}
}

func (s *ProductStore) snapshot() ProductState {
	st := s.state
	st.Products = append([]domain.Product(nil), s.state.Products...)
	if s.state.Selected != nil {
		selected := *s.state.Selected
		st.Selected = &selected
	}
	return st
}

// update applies fn under the lock and notifies listeners afterwards.
func (s *ProductStore) update(fn func(st *ProductState)) {
	s.mu.Lock()
	fn(&s.state)
	st := s.snapshot()
	listeners := make([]func(ProductState), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		if l != nil {
			l(st)
		}
	}
}

// FetchProducts loads the page described by the current filters. A
// response that arrives after a newer fetch started is dropped.
func (s *ProductStore) FetchProducts(ctx context.Context) error {
	var (
		seq     uint64
		filters client.Filters
	)
	s.update(func(st *ProductState) {
		s.listSeq++
		seq = s.listSeq
		filters = st.Filters
		st.Loading = true
		st.Error = ""
	})

	page, err := s.api.ListProducts(ctx, filters)

	stale := false
	s.update(func(st *ProductState) {
		if seq != s.listSeq {
			stale = true
			return
		}
		st.Loading = false
		if err != nil {
			st.Error = errorMessage(err, "Failed to fetch products")
			return
		}
		st.Products = page.Products
		if st.Products == nil {
			st.Products = []domain.Product{}
		}
		st.Pagination = Pagination{Total: page.Pagination.Total, TotalPages: page.Pagination.TotalPages}
	})
	if stale {
		s.logger.Debug("Discarded stale product list", zap.Uint64("seq", seq))
		return nil
	}
	return err
}

func (s *ProductStore) FetchProductByID(ctx context.Context, id string) error {
	s.update(func(st *ProductState) {
		st.Loading = true
		st.Error = ""
	})

	p, err := s.api.GetProduct(ctx, id)

	s.update(func(st *ProductState) {
		st.Loading = false
		if err != nil {
			st.Error = errorMessage(err, "Failed to fetch product")
			return
		}
		st.Selected = p
	})
	return err
}

func (s *ProductStore) CreateProduct(ctx context.Context, in client.ProductPayload) (*domain.Product, error) {
	s.startSubmit()

	p, err := s.api.CreateProduct(ctx, in)

	s.update(func(st *ProductState) {
		st.Submitting = false
		if err != nil {
			st.Error = errorMessage(err, "Failed to create product")
			return
		}
		st.Products = append([]domain.Product{*p}, st.Products...)
		s.setTotal(st, st.Pagination.Total+1)
	})
	return p, err
}

func (s *ProductStore) UpdateProduct(ctx context.Context, id string, in client.ProductPayload) (*domain.Product, error) {
	s.startSubmit()

	p, err := s.api.UpdateProduct(ctx, id, in)

	s.update(func(st *ProductState) {
		st.Submitting = false
		if err != nil {
			st.Error = errorMessage(err, "Failed to update product")
			return
		}
		for i := range st.Products {
			if st.Products[i].ID == id {
				st.Products[i] = *p
			}
		}
		if st.Selected != nil && st.Selected.ID == id {
			updated := *p
			st.Selected = &updated
		}
	})
	return p, err
}

func (s *ProductStore) DeleteProduct(ctx context.Context, id string) error {
	s.startSubmit()

	err := s.api.DeleteProduct(ctx, id)

	s.update(func(st *ProductState) {
		st.Submitting = false
		if err != nil {
			st.Error = errorMessage(err, "Failed to delete product")
			return
		}
		kept := st.Products[:0]
		for _, p := range st.Products {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		st.Products = kept
		if st.Selected != nil && st.Selected.ID == id {
			st.Selected = nil
		}
		total := st.Pagination.Total - 1
		if total < 0 {
			total = 0
		}
		s.setTotal(st, total)
	})
	return err
}

func (s *ProductStore) startSubmit() {
	s.update(func(st *ProductState) {
		st.Submitting = true
		st.Error = ""
	})
}

func (s *ProductStore) setTotal(st *ProductState, total int64) {
	st.Pagination.Total = total
	st.Pagination.TotalPages = domain.TotalPages(total, st.Filters.Limit)
}

// SetSearch changes the search text and goes back to the first page.
func (s *ProductStore) SetSearch(search string) {
	s.update(func(st *ProductState) {
		st.Filters.Search = search
		st.Filters.Page = 1
	})
}

// SetFilters replaces the filters and goes back to the first page. A zero
// limit keeps the current one.
func (s *ProductStore) SetFilters(f client.Filters) {
	s.update(func(st *ProductState) {
		if f.Limit == 0 {
			f.Limit = st.Filters.Limit
		}
		f.Page = 1
		st.Filters = f
	})
}

func (s *ProductStore) SetPage(page int) {
	s.update(func(st *ProductState) {
		st.Filters.Page = page
	})
}

func (s *ProductStore) SetSort(by domain.SortField, order domain.SortOrder) {
	s.update(func(st *ProductState) {
		st.Filters.SortBy = by
		st.Filters.SortOrder = order
	})
}

func (s *ProductStore) ClearSelected() {
	s.update(func(st *ProductState) { st.Selected = nil })
}

func (s *ProductStore) ClearError() {
	s.update(func(st *ProductState) { st.Error = "" })
}

// SearchDebounced sets the search text now and fetches once typing has
// paused for the search delay.
func (s *ProductStore) SearchDebounced(ctx context.Context, search string) {
	s.SetSearch(search)
	s.debouncer.Do(func() {
		if err := s.FetchProducts(ctx); err != nil {
			s.logger.Warn("Debounced product fetch failed", zap.Error(err))
		}
	})
}

// Close cancels a pending debounced fetch.
func (s *ProductStore) Close() {
	s.debouncer.Stop()
}
