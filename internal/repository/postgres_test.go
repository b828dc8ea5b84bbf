package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=stock dbname=stock sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestPostgresListQuery(t *testing.T) {
	db := dryRunDB(t)
	minPrice, maxQty := 10.0, 5
	f := domain.ProductFilter{
		Search:      "kb",
		MinPrice:    &minPrice,
		MaxQuantity: &maxQty,
		SortBy:      domain.SortByPrice,
		SortOrder:   domain.SortDesc,
		Page:        3,
		Limit:       10,
	}.Normalize()

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var out []domain.Product
		return tx.Scopes(filterScope(f), sortScope(f), pageScope(f)).Find(&out)
	})

	assert.Contains(t, sql, `FROM "products"`)
	assert.Contains(t, sql, `(name ILIKE '%kb%' OR description ILIKE '%kb%')`)
	assert.Contains(t, sql, "price >= 10")
	assert.Contains(t, sql, "quantity <= 5")
	assert.NotContains(t, sql, "price <=")
	assert.Contains(t, sql, `ORDER BY "price" DESC,"id"`)
	assert.Contains(t, sql, "LIMIT 10")
	assert.Contains(t, sql, "OFFSET 20")
}

func TestPostgresListQuery_UnknownSortFallsBack(t *testing.T) {
	db := dryRunDB(t)
	f := domain.ProductFilter{SortBy: "name; DROP TABLE products", SortOrder: "asc"}.Normalize()

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var out []domain.Product
		return tx.Scopes(filterScope(f), sortScope(f), pageScope(f)).Find(&out)
	})

	assert.Contains(t, sql, `ORDER BY "created_at","id"`)
	assert.NotContains(t, sql, "DROP")
	assert.NotContains(t, sql, "WHERE")
}

func TestPostgresCountQuery(t *testing.T) {
	db := dryRunDB(t)
	f := domain.ProductFilter{Search: "pen"}.Normalize()

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var total int64
		return tx.Model(&domain.Product{}).Scopes(filterScope(f)).Count(&total)
	})

	assert.Contains(t, sql, "SELECT count(*)")
	assert.Contains(t, sql, "ILIKE '%pen%'")
	assert.NotContains(t, sql, "LIMIT")
}

func TestPostgresSummaryQuery(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var s domain.StockSummary
		return summaryQuery(tx, domain.LowStockThreshold).Find(&s)
	})

	assert.Contains(t, sql, "SUM(price * quantity)")
	assert.Contains(t, sql, "FILTER (WHERE quantity > 0 AND quantity <= 5)")
	assert.Contains(t, sql, "FILTER (WHERE quantity = 0)")
}

func TestPatchColumns(t *testing.T) {
	qty := 7
	cols := patchColumns(domain.ProductPatch{
		Quantity: &qty,
		Image:    domain.Null[string](),
	})

	assert.Equal(t, 7, cols["quantity"])
	assert.Contains(t, cols, "image")
	assert.Nil(t, cols["image"])
	assert.Contains(t, cols, "updated_at")
	assert.NotContains(t, cols, "name")
	assert.NotContains(t, cols, "price")
	assert.NotContains(t, cols, "description")
}

func TestUpsertClause(t *testing.T) {
	db := dryRunDB(t)
	name := "Ada"
	user := &domain.User{ID: "7d3c8f2e-6d0a-4c54-9d8c-0f6f3f8a1b2c", Email: "ada@example.com", Username: "ada", Name: &name, GoogleID: "g-1"}

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return tx.Clauses(upsertClause(user)).Create(user)
	})

	assert.Contains(t, sql, `ON CONFLICT ("email") DO UPDATE SET`)
	assert.Contains(t, sql, `"username"="excluded"."username"`)
	assert.Contains(t, sql, `"name"="excluded"."name"`)
	assert.NotContains(t, sql, `"image"="excluded"."image"`)
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%kb%", containsPattern("kb"))
	assert.Equal(t, `%50\%\_off%`, containsPattern("50%_off"))
	assert.Equal(t, `%a\\b%`, containsPattern(`a\b`))
}
