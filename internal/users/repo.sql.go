package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane-erp/stocklane/internal/shared"
)

// Repository provides PostgreSQL backed persistence for user management.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.username, u.first_name, u.last_name, u.email, u.phone,
       u.is_active, u.role_id, COALESCE(roles.name, ''), u.created_at, u.updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email,
		&u.Phone, &u.IsActive, &u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// List returns non-deleted users ordered by username.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+`
FROM users u
LEFT JOIN roles ON roles.id = u.role_id AND roles.is_deleted = FALSE
WHERE u.is_deleted = FALSE
ORDER BY u.username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Get fetches a non-deleted user by id.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users u
LEFT JOIN roles ON roles.id = u.role_id AND roles.is_deleted = FALSE
WHERE u.id = $1 AND u.is_deleted = FALSE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return u, err
}

// Create inserts a user row and returns its id.
func (r *Repository) Create(ctx context.Context, u User, passwordHash string, actorID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (username, first_name, last_name, email, phone, password_hash, is_active, role_id, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
RETURNING id`,
		u.Username, u.FirstName, u.LastName, u.Email, u.Phone, passwordHash, u.IsActive, u.RoleID, actorID).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("username %q: %w", u.Username, shared.ErrAlreadyExists)
		}
		return 0, err
	}
	return id, nil
}

// Update rewrites the mutable fields of a user. An empty passwordHash leaves
// the stored hash unchanged.
func (r *Repository) Update(ctx context.Context, u User, passwordHash string, actorID int64) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET username = $2, first_name = $3, last_name = $4, email = $5, phone = $6,
    is_active = $7, role_id = $8,
    password_hash = COALESCE(NULLIF($9, ''), password_hash),
    updated_by = $10, updated_at = NOW()
WHERE id = $1 AND is_deleted = FALSE`,
		u.ID, u.Username, u.FirstName, u.LastName, u.Email, u.Phone, u.IsActive, u.RoleID, passwordHash, actorID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", u.Username, shared.ErrAlreadyExists)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", u.ID, shared.ErrNotFound)
	}
	return nil
}

// SoftDelete marks a user as deleted and deactivates the account.
func (r *Repository) SoftDelete(ctx context.Context, id, actorID int64) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE users SET is_deleted = TRUE, is_active = FALSE, updated_by = $2, updated_at = NOW()
WHERE id = $1 AND is_deleted = FALSE`, id, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// RoleExists reports whether a non-deleted role with the given id exists.
func (r *Repository) RoleExists(ctx context.Context, roleID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1 AND is_deleted = FALSE)`, roleID).Scan(&exists)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
