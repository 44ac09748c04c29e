package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane-erp/stocklane/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles product business logic.
type Service struct {
	pool   *pgxpool.Pool
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(pool *pgxpool.Pool, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{pool: pool, audit: audit, logger: logger}
}

const productColumns = `p.id, p.name, p.description, p.price, p.quantity, p.stock_minimum,
       p.category_id, COALESCE(c.name, ''), p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity, &p.StockMinimum,
		&p.CategoryID, &p.CategoryName, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search  string
	Page    int
	PerPage int
}

// List returns a page of non-deleted products plus pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, shared.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 || filter.PerPage > 100 {
		filter.PerPage = 20
	}
	search := "%" + strings.TrimSpace(filter.Search) + "%"

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE is_deleted = FALSE AND name ILIKE $1`, search).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}

	rows, err := s.pool.Query(ctx, `
SELECT `+productColumns+`
FROM products p
LEFT JOIN categories c ON c.id = p.category_id AND c.is_deleted = FALSE
WHERE p.is_deleted = FALSE AND p.name ILIKE $1
ORDER BY p.name
LIMIT $2 OFFSET $3`, search, filter.PerPage, (filter.Page-1)*filter.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		items = append(items, p)
	}
	return items, shared.NewPagination(filter.Page, filter.PerPage, total), rows.Err()
}

// Get fetches one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `
SELECT `+productColumns+`
FROM products p
LEFT JOIN categories c ON c.id = p.category_id AND c.is_deleted = FALSE
WHERE p.id = $1 AND p.is_deleted = FALSE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %d: %w", id, shared.ErrNotFound)
	}
	return p, err
}

// ListLowStock returns products whose quantity sits below their stock minimum.
func (s *Service) ListLowStock(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+productColumns+`
FROM products p
LEFT JOIN categories c ON c.id = p.category_id AND c.is_deleted = FALSE
WHERE p.is_deleted = FALSE AND p.quantity < p.stock_minimum
ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// Input carries the writable fields of a product.
type Input struct {
	Name         string
	Description  string
	Price        float64
	StockMinimum int64
	CategoryID   *int64
}

// Create inserts a product with zero starting quantity. Stock is added
// through movements, never at creation.
func (s *Service) Create(ctx context.Context, input Input, actorID int64) (Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Product{}, errors.New("products: name required")
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return Product{}, err
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO products (name, description, price, quantity, stock_minimum, category_id, created_by, created_at, updated_at)
VALUES ($1, $2, $3, 0, $4, $5, $6, NOW(), NOW())
RETURNING id`,
		name, strings.TrimSpace(input.Description), input.Price, input.StockMinimum, input.CategoryID, actorID).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, fmt.Errorf("product %q: %w", name, shared.ErrAlreadyExists)
		}
		return Product{}, err
	}
	s.record(ctx, actorID, "product.create", id, map[string]any{"name": name})
	return s.Get(ctx, id)
}

// Update rewrites the descriptive fields of a product. Quantity is excluded
// on purpose: it changes only through stock movements.
func (s *Service) Update(ctx context.Context, id int64, input Input, actorID int64) (Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Product{}, errors.New("products: name required")
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return Product{}, err
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE products SET name = $2, description = $3, price = $4, stock_minimum = $5, category_id = $6, updated_by = $7, updated_at = NOW()
WHERE id = $1 AND is_deleted = FALSE`,
		id, name, strings.TrimSpace(input.Description), input.Price, input.StockMinimum, input.CategoryID, actorID)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, fmt.Errorf("product %q: %w", name, shared.ErrAlreadyExists)
		}
		return Product{}, err
	}
	if tag.RowsAffected() == 0 {
		return Product{}, fmt.Errorf("product %d: %w", id, shared.ErrNotFound)
	}
	s.record(ctx, actorID, "product.update", id, map[string]any{"name": name})
	return s.Get(ctx, id)
}

// Delete soft-deletes a product. Movement history stays intact.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE products SET is_deleted = TRUE, updated_by = $2, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, shared.ErrNotFound)
	}
	s.record(ctx, actorID, "product.delete", id, nil)
	return nil
}

func (s *Service) checkCategory(ctx context.Context, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND is_deleted = FALSE)`, *categoryID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("category %d: %w", *categoryID, shared.ErrNotFound)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
