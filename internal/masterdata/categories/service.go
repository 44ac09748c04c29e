package categories

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

// Service handles category business logic.
type Service struct {
	pool   *pgxpool.Pool
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(pool *pgxpool.Pool, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{pool: pool, audit: audit, logger: logger}
}

// List returns non-deleted categories ordered by name.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM categories WHERE is_deleted = FALSE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// Get fetches one category.
func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := s.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM categories WHERE id = $1 AND is_deleted = FALSE`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, fmt.Errorf("category %d: %w", id, shared.ErrNotFound)
	}
	return c, err
}

// Create inserts a category. Duplicate names are rejected.
func (s *Service) Create(ctx context.Context, name, description string, actorID int64) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, errors.New("categories: name required")
	}
	var c Category
	err := s.pool.QueryRow(ctx, `
INSERT INTO categories (name, description, created_by, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
RETURNING id, name, description, created_at, updated_at`,
		name, strings.TrimSpace(description), actorID).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Category{}, fmt.Errorf("category %q: %w", name, shared.ErrAlreadyExists)
		}
		return Category{}, err
	}
	s.record(ctx, actorID, "category.create", c.ID, map[string]any{"name": c.Name})
	return c, nil
}

// Update rewrites name and description of a category.
func (s *Service) Update(ctx context.Context, id int64, name, description string, actorID int64) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, errors.New("categories: name required")
	}
	var c Category
	err := s.pool.QueryRow(ctx, `
UPDATE categories SET name = $2, description = $3, updated_by = $4, updated_at = NOW()
WHERE id = $1 AND is_deleted = FALSE
RETURNING id, name, description, created_at, updated_at`,
		id, name, strings.TrimSpace(description), actorID).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, fmt.Errorf("category %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return Category{}, fmt.Errorf("category %q: %w", name, shared.ErrAlreadyExists)
		}
		return Category{}, err
	}
	s.record(ctx, actorID, "category.update", c.ID, map[string]any{"name": c.Name})
	return c, nil
}

// Delete soft-deletes a category. Products keep their category_id; listings
// simply stop resolving the name.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE categories SET is_deleted = TRUE, updated_by = $2, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", id, shared.ErrNotFound)
	}
	s.record(ctx, actorID, "category.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "category",
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
