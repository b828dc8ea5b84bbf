package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

// MemoryProductRepository keeps products in a map. It backs local
// development and the service and handler tests.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[string]domain.Product)}
}

func (r *MemoryProductRepository) snapshot() []domain.Product {
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out
}

func (r *MemoryProductRepository) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page, total := domain.FilterPage(r.snapshot(), filter)
	return page, total, nil
}

func (r *MemoryProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r *MemoryProductRepository) Create(_ context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[product.ID] = *product
	return nil
}

func (r *MemoryProductRepository) Update(_ context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	p.Apply(patch)
	r.products[id] = p
	return &p, nil
}

func (r *MemoryProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *MemoryProductRepository) Summary(_ context.Context, lowStockThreshold int) (*domain.StockSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := domain.Summarize(r.snapshot(), lowStockThreshold)
	return &s, nil
}

func (r *MemoryProductRepository) StockLevels(_ context.Context) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := r.snapshot()
	domain.SortProducts(products, domain.SortByQuantity, domain.SortDesc)
	return products, nil
}

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) Upsert(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := r.users[user.Email]
	if !ok {
		existing = *user
		if existing.ID == "" {
			existing.ID = uuid.NewString()
		}
		existing.CreatedAt = now
	}
	existing.Username = user.Username
	existing.GoogleID = user.GoogleID
	if user.Name != nil {
		existing.Name = user.Name
	}
	if user.Image != nil {
		existing.Image = user.Image
	}
	existing.UpdatedAt = now

	r.users[user.Email] = existing
	return &existing, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}
