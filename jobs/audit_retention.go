package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stocklane-erp/stocklane/internal/audit"
	"github.com/stocklane-erp/stocklane/internal/observability"
)

// AuditRetentionJob trims audit entries older than the retention window.
type AuditRetentionJob struct {
	Audit     *audit.Service
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	clock     func() time.Time
}

// NewAuditRetentionJob initialises the retention handler.
func NewAuditRetentionJob(auditSvc *audit.Service, retention time.Duration, logger *slog.Logger, metrics *observability.Metrics) *AuditRetentionJob {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &AuditRetentionJob{
		Audit:     auditSvc,
		Retention: retention,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the retention trim.
func (j *AuditRetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Audit == nil {
		return errors.New("audit retention: handler not configured")
	}
	cutoff := j.clock().Add(-j.Retention)
	removed, err := j.Audit.TrimOlderThan(ctx, cutoff)
	if err != nil {
		j.Metrics.ObserveJob(TaskAuditRetention, "error")
		return err
	}
	j.logger().Info("audit retention completed",
		slog.Time("cutoff", cutoff),
		slog.Int64("removed", removed))
	j.Metrics.ObserveJob(TaskAuditRetention, "ok")
	return nil
}

func (j *AuditRetentionJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", "audit_retention"))
	}
	return slog.Default().With(slog.String("job", "audit_retention"))
}
