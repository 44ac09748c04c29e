package products

import "time"

// Product is a stocked item. Quantity is only mutated through stock
// movements; the CRUD endpoints never touch it directly.
type Product struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Quantity     int64     `json:"quantity"`
	StockMinimum int64     `json:"stock_minimum"`
	CategoryID   *int64    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsLowStock reports whether the product sits below its stock minimum.
func (p Product) IsLowStock() bool {
	return p.Quantity < p.StockMinimum
}
