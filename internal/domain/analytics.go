package domain

import "time"

// LowStockThreshold is the inclusive upper bound for a non-zero quantity to
// count as low stock.
const LowStockThreshold = 5

type StockSummary struct {
	TotalProducts       int64   `json:"totalProducts"`
	TotalQuantity       int64   `json:"totalQuantity"`
	TotalInventoryValue float64 `json:"totalInventoryValue"`
	LowStockCount       int64   `json:"lowStockCount"`
	OutOfStockCount     int64   `json:"outOfStockCount"`
}

// StockLevel is one row of the stock-by-product chart payload.
type StockLevel struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	Price          float64   `json:"price"`
	InventoryValue float64   `json:"inventoryValue"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func NewStockLevel(p Product) StockLevel {
	return StockLevel{
		ID:             p.ID,
		Name:           p.Name,
		Quantity:       p.Quantity,
		Price:          p.Price,
		InventoryValue: p.InventoryValue(),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// Summarize folds products into a StockSummary. Drivers that cannot
// aggregate server side use it directly.
func Summarize(products []Product, threshold int) StockSummary {
	var s StockSummary
	for _, p := range products {
		s.TotalProducts++
		s.TotalQuantity += int64(p.Quantity)
		s.TotalInventoryValue += p.InventoryValue()
		switch {
		case p.Quantity == 0:
			s.OutOfStockCount++
		case p.Quantity <= threshold:
			s.LowStockCount++
		}
	}
	return s
}
