package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/stocklane-erp/stocklane/internal/inventory"
	"github.com/stocklane-erp/stocklane/internal/masterdata/products"
	"github.com/stocklane-erp/stocklane/internal/notifications"
	"github.com/stocklane-erp/stocklane/internal/observability"
	"github.com/stocklane-erp/stocklane/internal/shared"
)

// LowStockJob raises WARNING notifications for products below their stock
// minimum. The alert path handles the event emitted by a single movement;
// the scan path sweeps the catalog periodically as a safety net.
type LowStockJob struct {
	Products      *products.Service
	Notifications *notifications.Service
	Logger        *slog.Logger
	Metrics       *observability.Metrics
}

// NewLowStockJob initialises the low-stock handler.
func NewLowStockJob(products *products.Service, notifications *notifications.Service, logger *slog.Logger, metrics *observability.Metrics) *LowStockJob {
	return &LowStockJob{Products: products, Notifications: notifications, Logger: logger, Metrics: metrics}
}

// HandleAlert processes one low-stock event.
func (j *LowStockJob) HandleAlert(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Notifications == nil {
		return errors.New("low stock alert: handler not configured")
	}
	var event inventory.LowStockEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return asynq.SkipRetry
	}
	inserted, err := j.notify(ctx, event.ProductName, event.Quantity, event.StockMinimum)
	if err != nil {
		j.Metrics.ObserveJob(TaskLowStockAlert, "error")
		return err
	}
	j.logger().Info("low stock alert dispatched",
		slog.Int64("product_id", event.ProductID),
		slog.Int64("notified", inserted))
	j.Metrics.ObserveJob(TaskLowStockAlert, "ok")
	return nil
}

// HandleScan sweeps the catalog for low-stock products.
func (j *LowStockJob) HandleScan(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Products == nil || j.Notifications == nil {
		return errors.New("low stock scan: handler not configured")
	}
	low, err := j.Products.ListLowStock(ctx)
	if err != nil {
		j.Metrics.ObserveJob(TaskLowStockScan, "error")
		return err
	}
	var notified int64
	for _, p := range low {
		inserted, err := j.notify(ctx, p.Name, p.Quantity, p.StockMinimum)
		if err != nil {
			j.Metrics.ObserveJob(TaskLowStockScan, "error")
			return err
		}
		notified += inserted
	}
	j.logger().Info("low stock scan completed",
		slog.Int("products", len(low)),
		slog.Int64("notified", notified))
	j.Metrics.ObserveJob(TaskLowStockScan, "ok")
	return nil
}

func (j *LowStockJob) notify(ctx context.Context, productName string, quantity, minimum int64) (int64, error) {
	title := fmt.Sprintf("Low stock: %s", productName)
	message := fmt.Sprintf("%s is down to %d units (minimum %d).", productName, quantity, minimum)
	return j.Notifications.BroadcastToPermission(ctx, shared.PermViewStocks, notifications.LevelWarning, title, message)
}

func (j *LowStockJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", "low_stock"))
	}
	return slog.Default().With(slog.String("job", "low_stock"))
}
