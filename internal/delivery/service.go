package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane-erp/stocklane/internal/platform/db"
	"github.com/stocklane-erp/stocklane/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles delivery business logic.
type Service struct {
	pool   *pgxpool.Pool
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(pool *pgxpool.Pool, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{pool: pool, audit: audit, logger: logger}
}

const deliveryColumns = `id, order_id, address, status, note, created_by, created_at, updated_at`

func scanDelivery(row pgx.Row) (Delivery, error) {
	var d Delivery
	err := row.Scan(&d.ID, &d.OrderID, &d.Address, &d.Status, &d.Note, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// List returns non-deleted deliveries, newest first.
func (s *Service) List(ctx context.Context, status Status) ([]Delivery, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("delivery: unknown status %q", status)
	}
	rows, err := s.pool.Query(ctx, `
SELECT `+deliveryColumns+`
FROM deliveries
WHERE is_deleted = FALSE AND ($1 = '' OR status = $1)
ORDER BY created_at DESC, id DESC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Get fetches one delivery.
func (s *Service) Get(ctx context.Context, id int64) (Delivery, error) {
	d, err := scanDelivery(s.pool.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1 AND is_deleted = FALSE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Delivery{}, fmt.Errorf("delivery %d: %w", id, shared.ErrNotFound)
	}
	return d, err
}

// Create registers a delivery for an existing order.
func (s *Service) Create(ctx context.Context, orderID int64, address, note string, actorID int64) (Delivery, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Delivery{}, errors.New("delivery: address required")
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1 AND is_deleted = FALSE)`, orderID).Scan(&exists); err != nil {
		return Delivery{}, err
	}
	if !exists {
		return Delivery{}, fmt.Errorf("order %d: %w", orderID, shared.ErrNotFound)
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO deliveries (order_id, address, status, note, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
RETURNING id`, orderID, address, StatusPending, strings.TrimSpace(note), actorID).Scan(&id)
	if err != nil {
		return Delivery{}, err
	}
	s.record(ctx, actorID, "delivery.create", id, map[string]any{"order_id": orderID})
	return s.Get(ctx, id)
}

// UpdateAddress rewrites the destination of a delivery that has not shipped.
func (s *Service) UpdateAddress(ctx context.Context, id int64, address, note string, actorID int64) (Delivery, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Delivery{}, errors.New("delivery: address required")
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE deliveries SET address = $2, note = $3, updated_by = $4, updated_at = NOW()
WHERE id = $1 AND is_deleted = FALSE AND status = $5`, id, address, strings.TrimSpace(note), actorID, StatusPending)
	if err != nil {
		return Delivery{}, err
	}
	if tag.RowsAffected() == 0 {
		// Either unknown or already in transit; Get disambiguates.
		if _, err := s.Get(ctx, id); err != nil {
			return Delivery{}, err
		}
		return Delivery{}, fmt.Errorf("delivery %d already shipped: %w", id, ErrInvalidTransition)
	}
	s.record(ctx, actorID, "delivery.update", id, nil)
	return s.Get(ctx, id)
}

// Advance moves a delivery one step along PENDING -> IN_TRANSIT -> DELIVERED.
// The check and the update run in one transaction so concurrent advances
// cannot skip a state.
func (s *Service) Advance(ctx context.Context, id, actorID int64) (Delivery, error) {
	var next Status
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var current Status
		err := tx.QueryRow(ctx, `SELECT status FROM deliveries WHERE id = $1 AND is_deleted = FALSE FOR UPDATE`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("delivery %d: %w", id, shared.ErrNotFound)
		}
		if err != nil {
			return err
		}
		next = current.next()
		if next == "" {
			return fmt.Errorf("delivery %d is %s: %w", id, current, ErrInvalidTransition)
		}
		_, err = tx.Exec(ctx, `UPDATE deliveries SET status = $2, updated_by = $3, updated_at = NOW() WHERE id = $1`, id, next, actorID)
		return err
	})
	if err != nil {
		return Delivery{}, err
	}
	s.record(ctx, actorID, "delivery.advance", id, map[string]any{"status": string(next)})
	return s.Get(ctx, id)
}

// Delete soft-deletes a delivery.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE deliveries SET is_deleted = TRUE, updated_by = $2, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delivery %d: %w", id, shared.ErrNotFound)
	}
	s.record(ctx, actorID, "delivery.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "delivery",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
