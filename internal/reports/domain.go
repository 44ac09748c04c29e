package reports

import "time"

// Report is a stored snapshot of inventory KPIs at generation time.
type Report struct {
	ID              int64     `json:"id"`
	Reference       string    `json:"reference"`
	ProductCount    int64     `json:"product_count"`
	TotalStockValue float64   `json:"total_stock_value"`
	LowStockCount   int64     `json:"low_stock_count"`
	PendingOrders   int64     `json:"pending_orders"`
	Summary         string    `json:"summary"`
	GeneratedBy     int64     `json:"generated_by"`
	CreatedAt       time.Time `json:"created_at"`
}
