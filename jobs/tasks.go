package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/stocklane-erp/stocklane/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockAlert fans a single low-stock event out to the users who
	// watch stock levels.
	TaskLowStockAlert = "stock:low_stock_alert"
	// TaskLowStockScan sweeps the whole catalog for products below their
	// minimum, catching anything the event path missed.
	TaskLowStockScan = "stock:low_stock_scan"
	// TaskAuditRetention trims audit entries past the retention window.
	TaskAuditRetention = "audit:retention"
)

// NewLowStockAlertTask constructs the alert task for one product.
func NewLowStockAlertTask(event inventory.LowStockEvent) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, data), nil
}

// NewLowStockScanTask constructs the periodic scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}

// NewAuditRetentionTask constructs the retention task.
func NewAuditRetentionTask() *asynq.Task {
	return asynq.NewTask(TaskAuditRetention, nil)
}

// Client submits jobs to the queue. It satisfies inventory.LowStockNotifier
// so movement posting can enqueue alerts without knowing about asynq.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// NotifyLowStock enqueues a low-stock alert task.
func (c *Client) NotifyLowStock(ctx context.Context, event inventory.LowStockEvent) error {
	task, err := NewLowStockAlertTask(event)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
