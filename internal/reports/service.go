package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stocklane-erp/stocklane/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service generates and stores inventory KPI reports.
type Service struct {
	pool    *pgxpool.Pool
	audit   AuditPort
	logger  *slog.Logger
	printer *message.Printer
}

// NewService builds a Service instance.
func NewService(pool *pgxpool.Pool, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		pool:    pool,
		audit:   audit,
		logger:  logger,
		printer: message.NewPrinter(language.English),
	}
}

// Generate snapshots the current inventory KPIs into a stored report. The
// snapshot is a point-in-time read; it is never recomputed afterwards.
func (s *Service) Generate(ctx context.Context, actorID int64) (Report, error) {
	report := Report{
		Reference:   uuid.NewString(),
		GeneratedBy: actorID,
	}
	err := s.pool.QueryRow(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(price * quantity), 0),
       COUNT(*) FILTER (WHERE quantity < stock_minimum)
FROM products
WHERE is_deleted = FALSE`).
		Scan(&report.ProductCount, &report.TotalStockValue, &report.LowStockCount)
	if err != nil {
		return Report{}, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE is_deleted = FALSE AND status = 'PENDING'`).Scan(&report.PendingOrders); err != nil {
		return Report{}, err
	}
	report.Summary = s.summary(report)

	err = s.pool.QueryRow(ctx, `
INSERT INTO reports (reference, product_count, total_stock_value, low_stock_count, pending_orders, summary, generated_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
RETURNING id, created_at`,
		report.Reference, report.ProductCount, report.TotalStockValue, report.LowStockCount,
		report.PendingOrders, report.Summary, report.GeneratedBy).
		Scan(&report.ID, &report.CreatedAt)
	if err != nil {
		return Report{}, err
	}
	s.record(ctx, actorID, "report.generate", report.ID, map[string]any{"reference": report.Reference})
	return report, nil
}

// summary renders the human-readable digest with locale-aware number
// grouping ("12,480 units" rather than "12480").
func (s *Service) summary(r Report) string {
	return s.printer.Sprintf("%d products tracked, total stock value %.2f, %d below minimum, %d orders pending",
		r.ProductCount, r.TotalStockValue, r.LowStockCount, r.PendingOrders)
}

// List returns stored reports, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, reference, product_count, total_stock_value, low_stock_count, pending_orders, summary, generated_by, created_at
FROM reports
WHERE is_deleted = FALSE
ORDER BY created_at DESC, id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.Reference, &r.ProductCount, &r.TotalStockValue, &r.LowStockCount, &r.PendingOrders, &r.Summary, &r.GeneratedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get fetches one report.
func (s *Service) Get(ctx context.Context, id int64) (Report, error) {
	var r Report
	err := s.pool.QueryRow(ctx, `
SELECT id, reference, product_count, total_stock_value, low_stock_count, pending_orders, summary, generated_by, created_at
FROM reports
WHERE id = $1 AND is_deleted = FALSE`, id).
		Scan(&r.ID, &r.Reference, &r.ProductCount, &r.TotalStockValue, &r.LowStockCount, &r.PendingOrders, &r.Summary, &r.GeneratedBy, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, fmt.Errorf("report %d: %w", id, shared.ErrNotFound)
	}
	return r, err
}

// Delete soft-deletes a report.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE reports SET is_deleted = TRUE WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("report %d: %w", id, shared.ErrNotFound)
	}
	s.record(ctx, actorID, "report.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "report",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
