package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane-erp/stocklane/internal/shared"
)

// Repository provides PostgreSQL backed persistence for user credentials.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByUsername fetches a non-deleted user by unique username, joining the
// role name when the role itself is not deleted.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
SELECT u.id, u.username, u.first_name, u.last_name, u.email, u.phone,
       u.password_hash, u.is_active, u.role_id,
       COALESCE(roles.name, ''),
       u.created_at, u.updated_at
FROM users u
LEFT JOIN roles ON roles.id = u.role_id AND roles.is_deleted = FALSE
WHERE u.username = $1 AND u.is_deleted = FALSE`, username)

	var user User
	if err := row.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName,
		&user.Email, &user.Phone, &user.PasswordHash, &user.IsActive,
		&user.RoleID, &user.RoleName, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user record and returns its id.
func (r *Repository) CreateUser(ctx context.Context, user User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (username, first_name, last_name, email, phone, password_hash, is_active, role_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
RETURNING id`,
		user.Username, user.FirstName, user.LastName, user.Email, user.Phone,
		user.PasswordHash, user.IsActive, user.RoleID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}
