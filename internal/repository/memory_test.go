package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

func seedProducts(t *testing.T, repo ProductRepository, n int) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p := &domain.Product{
			ID:        fmt.Sprintf("id-%02d", i),
			Name:      fmt.Sprintf("Product %02d", i),
			Price:     float64(i),
			Quantity:  i,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(context.Background(), p))
	}
}

func TestMemoryProductRepository_List(t *testing.T) {
	repo := NewMemoryProductRepository()
	seedProducts(t, repo, 25)
	ctx := context.Background()

	page, total, err := repo.List(ctx, domain.ProductFilter{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	require.Len(t, page, 5)
	// default order is newest first
	assert.Equal(t, "id-04", page[0].ID)
	assert.Equal(t, "id-00", page[4].ID)

	minQty := 20
	page, total, err = repo.List(ctx, domain.ProductFilter{MinQuantity: &minQty, SortBy: domain.SortByQuantity, SortOrder: domain.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, 20, page[0].Quantity)
}

func TestMemoryProductRepository_CRUD(t *testing.T) {
	repo := NewMemoryProductRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &domain.Product{ID: "p1", Name: "Pen", Price: 1.5, Quantity: 100, CreatedAt: now, UpdatedAt: now}))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Pen", got.Name)

	qty := 7
	later := now.Add(time.Minute)
	updated, err := repo.Update(ctx, "p1", domain.ProductPatch{Quantity: &qty, UpdatedAt: later})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)
	assert.Equal(t, "Pen", updated.Name)
	assert.Equal(t, 1.5, updated.Price)
	assert.Equal(t, later, updated.UpdatedAt)

	_, err = repo.Update(ctx, "missing", domain.ProductPatch{Quantity: &qty})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	require.NoError(t, repo.Delete(ctx, "p1"))
	assert.ErrorIs(t, repo.Delete(ctx, "p1"), domain.ErrProductNotFound)

	_, err = repo.GetByID(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestMemoryProductRepository_Analytics(t *testing.T) {
	repo := NewMemoryProductRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.Product{ID: "a", Name: "A", Price: 10, Quantity: 2}))
	require.NoError(t, repo.Create(ctx, &domain.Product{ID: "b", Name: "B", Price: 5, Quantity: 0}))
	require.NoError(t, repo.Create(ctx, &domain.Product{ID: "c", Name: "C", Price: 1, Quantity: 40}))

	s, err := repo.Summary(ctx, domain.LowStockThreshold)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.TotalProducts)
	assert.Equal(t, int64(42), s.TotalQuantity)
	assert.Equal(t, 60.0, s.TotalInventoryValue)
	assert.Equal(t, int64(1), s.LowStockCount)
	assert.Equal(t, int64(1), s.OutOfStockCount)

	levels, err := repo.StockLevels(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{levels[0].ID, levels[1].ID, levels[2].ID})
}

func TestMemoryUserRepository_Upsert(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	name := "Ada"

	first, err := repo.Upsert(ctx, &domain.User{Email: "ada@example.com", Username: "ada", Name: &name, GoogleID: "g-1"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := repo.Upsert(ctx, &domain.User{Email: "ada@example.com", Username: "ada.l", GoogleID: "g-2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "ada.l", second.Username)
	assert.Equal(t, "g-2", second.GoogleID)
	require.NotNil(t, second.Name)
	assert.Equal(t, "Ada", *second.Name)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
