package inventory

import "context"

// LowStockEvent fires when an outbound movement drops a product below its
// stock minimum.
type LowStockEvent struct {
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	Quantity     int64  `json:"quantity"`
	StockMinimum int64  `json:"stock_minimum"`
}

// LowStockNotifier dispatches low-stock events, typically onto the task
// queue. Implementations must be safe to call after the movement committed.
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, event LowStockEvent) error
}
