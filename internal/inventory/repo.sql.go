package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane-erp/stocklane/internal/platform/db"
	"github.com/stocklane-erp/stocklane/internal/shared"
)

// Repository provides PostgreSQL backed persistence for stock movements.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx runs fn inside one transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const movementColumns = `m.id, m.reference, m.product_id, COALESCE(p.name, ''), m.type, m.quantity, m.note, m.created_by, m.created_at`

// ListMovements returns non-deleted movements, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+movementColumns+`
FROM stock_movements m
LEFT JOIN products p ON p.id = m.product_id
WHERE m.is_deleted = FALSE
  AND ($1 = 0 OR m.product_id = $1)
  AND ($2 = '' OR m.type = $2)
ORDER BY m.created_at DESC, m.id DESC
LIMIT $3`, filter.ProductID, string(filter.Type), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.Reference, &m.ProductID, &m.ProductName, &m.Type, &m.Quantity, &m.Note, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// GetMovement fetches one non-deleted movement.
func (r *Repository) GetMovement(ctx context.Context, id int64) (Movement, error) {
	var m Movement
	err := r.pool.QueryRow(ctx, `
SELECT `+movementColumns+`
FROM stock_movements m
LEFT JOIN products p ON p.id = m.product_id
WHERE m.id = $1 AND m.is_deleted = FALSE`, id).
		Scan(&m.ID, &m.Reference, &m.ProductID, &m.ProductName, &m.Type, &m.Quantity, &m.Note, &m.CreatedBy, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Movement{}, fmt.Errorf("movement %d: %w", id, shared.ErrNotFound)
	}
	return m, err
}

func (t *txRepository) GetProductForUpdate(ctx context.Context, productID int64) (ProductState, error) {
	var state ProductState
	err := t.tx.QueryRow(ctx, `
SELECT id, name, quantity, stock_minimum
FROM products
WHERE id = $1 AND is_deleted = FALSE
FOR UPDATE`, productID).
		Scan(&state.ID, &state.Name, &state.Quantity, &state.StockMinimum)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductState{}, fmt.Errorf("product %d: %w", productID, shared.ErrNotFound)
	}
	return state, err
}

func (t *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
INSERT INTO stock_movements (reference, product_id, type, quantity, note, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
RETURNING id`,
		m.Reference, m.ProductID, m.Type, m.Quantity, m.Note, m.CreatedBy).Scan(&id)
	return id, err
}

func (t *txRepository) SetProductQuantity(ctx context.Context, productID, quantity, actorID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products SET quantity = $2, updated_by = $3, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, productID, quantity, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", productID, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepository) SoftDeleteMovement(ctx context.Context, movementID, actorID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE stock_movements SET is_deleted = TRUE, updated_by = $2, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, movementID, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("movement %d: %w", movementID, shared.ErrNotFound)
	}
	return nil
}
