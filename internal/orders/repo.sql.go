package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane-erp/stocklane/internal/platform/db"
	"github.com/stocklane-erp/stocklane/internal/shared"
)

// Repository provides PostgreSQL backed persistence for orders.
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

// List returns non-deleted orders, newest first, items included.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, reference, status, customer, note, total, created_by, created_at, updated_at
FROM orders
WHERE is_deleted = FALSE AND ($1 = '' OR status = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2`, string(filter.Status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Reference, &o.Status, &o.Customer, &o.Note, &o.Total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := r.loadItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// Get fetches one order with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `
SELECT id, reference, status, customer, note, total, created_by, created_at, updated_at
FROM orders
WHERE id = $1 AND is_deleted = FALSE`, id).
		Scan(&o.ID, &o.Reference, &o.Status, &o.Customer, &o.Note, &o.Total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Order{}, err
	}
	o.Items, err = r.loadItems(ctx, o.ID)
	return o, err
}

func (r *Repository) loadItems(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
SELECT i.id, i.order_id, i.product_id, COALESCE(p.name, ''), i.quantity, i.price_per_unit
FROM order_items i
LEFT JOIN products p ON p.id = i.product_id
WHERE i.order_id = $1
ORDER BY i.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PricePerUnit); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (t *txRepository) GetProductForUpdate(ctx context.Context, productID int64) (ProductSnapshot, error) {
	var p ProductSnapshot
	err := t.tx.QueryRow(ctx, `
SELECT id, name, price, quantity
FROM products
WHERE id = $1 AND is_deleted = FALSE
FOR UPDATE`, productID).Scan(&p.ID, &p.Name, &p.Price, &p.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductSnapshot{}, fmt.Errorf("product %d: %w", productID, shared.ErrNotFound)
	}
	return p, err
}

func (t *txRepository) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
INSERT INTO orders (reference, status, customer, note, total, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
RETURNING id`,
		o.Reference, o.Status, o.Customer, o.Note, o.Total, o.CreatedBy).Scan(&id)
	return id, err
}

func (t *txRepository) InsertItems(ctx context.Context, orderID int64, items []Item) error {
	for _, it := range items {
		if _, err := t.tx.Exec(ctx, `
INSERT INTO order_items (order_id, product_id, quantity, price_per_unit)
VALUES ($1, $2, $3, $4)`,
			orderID, it.ProductID, it.Quantity, it.PricePerUnit); err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepository) GetOrderForUpdate(ctx context.Context, orderID int64) (Order, error) {
	var o Order
	err := t.tx.QueryRow(ctx, `
SELECT id, reference, status, customer, note, total, created_by, created_at, updated_at
FROM orders
WHERE id = $1 AND is_deleted = FALSE
FOR UPDATE`, orderID).
		Scan(&o.ID, &o.Reference, &o.Status, &o.Customer, &o.Note, &o.Total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("order %d: %w", orderID, shared.ErrNotFound)
	}
	if err != nil {
		return Order{}, err
	}
	rows, err := t.tx.Query(ctx, `
SELECT id, order_id, product_id, quantity, price_per_unit
FROM order_items
WHERE order_id = $1
ORDER BY id`, orderID)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PricePerUnit); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (t *txRepository) SetOrderStatus(ctx context.Context, orderID int64, status OrderStatus, actorID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders SET status = $2, updated_by = $3, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, orderID, status, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", orderID, shared.ErrNotFound)
	}
	return nil
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
