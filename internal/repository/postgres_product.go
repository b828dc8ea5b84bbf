package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

type PostgresProductRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPostgresProductRepository(db *gorm.DB, logger *zap.Logger) *PostgresProductRepository {
	return &PostgresProductRepository{db: db, logger: logger}
}

func filterScope(f domain.ProductFilter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if f.Search != "" {
			p := containsPattern(f.Search)
			tx = tx.Where("(name ILIKE ? OR description ILIKE ?)", p, p)
		}
		if f.MinPrice != nil {
			tx = tx.Where("price >= ?", *f.MinPrice)
		}
		if f.MaxPrice != nil {
			tx = tx.Where("price <= ?", *f.MaxPrice)
		}
		if f.MinQuantity != nil {
			tx = tx.Where("quantity >= ?", *f.MinQuantity)
		}
		if f.MaxQuantity != nil {
			tx = tx.Where("quantity <= ?", *f.MaxQuantity)
		}
		return tx
	}
}

// sortScope only ever orders by a whitelisted column, then id.
func sortScope(f domain.ProductFilter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.
			Order(clause.OrderByColumn{Column: clause.Column{Name: f.SortColumn()}, Desc: f.SortOrder != domain.SortAsc}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}
}

func pageScope(f domain.ProductFilter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Offset(f.Offset()).Limit(f.Limit)
	}
}

func (r *PostgresProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	f := filter.Normalize()

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Scopes(filterScope(f)).Count(&total).Error; err != nil {
		return nil, 0, storageErr(r.logger, "count products", err)
	}

	products := make([]domain.Product, 0, f.Limit)
	if total == 0 {
		return products, 0, nil
	}

	err := r.db.WithContext(ctx).
		Scopes(filterScope(f), sortScope(f), pageScope(f)).
		Find(&products).Error
	if err != nil {
		return nil, 0, storageErr(r.logger, "list products", err)
	}
	return products, total, nil
}

func (r *PostgresProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, storageErr(r.logger, "get product", err)
	}
	return &product, nil
}

func (r *PostgresProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return storageErr(r.logger, "create product", err)
	}
	return nil
}

// patchColumns maps a patch to column assignments. Explicit nulls become
// NULL; absent fields are left out.
func patchColumns(patch domain.ProductPatch) map[string]any {
	cols := map[string]any{"updated_at": patch.UpdatedAt}
	if patch.Name != nil {
		cols["name"] = *patch.Name
	}
	if patch.Description.Set {
		cols["description"] = patch.Description.Ptr()
	}
	if patch.Price != nil {
		cols["price"] = *patch.Price
	}
	if patch.Quantity != nil {
		cols["quantity"] = *patch.Quantity
	}
	if patch.Image.Set {
		cols["image"] = patch.Image.Ptr()
	}
	return cols
}

func (r *PostgresProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(patchColumns(patch))
	if res.Error != nil {
		return nil, storageErr(r.logger, "update product", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrProductNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{})
	if res.Error != nil {
		return storageErr(r.logger, "delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

const summarySelect = `COUNT(*) AS total_products,
COALESCE(SUM(quantity), 0) AS total_quantity,
COALESCE(SUM(price * quantity), 0) AS total_inventory_value,
COUNT(*) FILTER (WHERE quantity > 0 AND quantity <= ?) AS low_stock_count,
COUNT(*) FILTER (WHERE quantity = 0) AS out_of_stock_count`

func summaryQuery(tx *gorm.DB, lowStockThreshold int) *gorm.DB {
	return tx.Model(&domain.Product{}).Select(summarySelect, lowStockThreshold)
}

// Summary aggregates in a single round trip.
func (r *PostgresProductRepository) Summary(ctx context.Context, lowStockThreshold int) (*domain.StockSummary, error) {
	var s domain.StockSummary
	err := summaryQuery(r.db.WithContext(ctx), lowStockThreshold).Scan(&s).Error
	if err != nil {
		return nil, storageErr(r.logger, "summarize stock", err)
	}
	return &s, nil
}

func (r *PostgresProductRepository) StockLevels(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).
		Order("quantity DESC").
		Order("id").
		Find(&products).Error
	if err != nil {
		return nil, storageErr(r.logger, "list stock levels", err)
	}
	return products, nil
}
