package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane-erp/stocklane/internal/platform/db"
	"github.com/stocklane-erp/stocklane/internal/shared"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for roles, permissions
// and their assignments.
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

// ListRoles returns all non-deleted roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE is_deleted = FALSE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a non-deleted role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1 AND is_deleted = FALSE`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.ErrNotFound
	}
	return role, err
}

// InsertRole creates a role.
func (r *Repository) InsertRole(ctx context.Context, name, description string, actorID int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
INSERT INTO roles (name, description, created_by, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
RETURNING id, name, description, created_at, updated_at`,
		name, description, actorID).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if isUniqueViolation(err) {
		return Role{}, shared.ErrAlreadyExists
	}
	return role, err
}

// UpdateRole renames a non-deleted role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string, actorID int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
UPDATE roles SET name = $2, description = $3, updated_by = $4, updated_at = NOW()
WHERE id = $1 AND is_deleted = FALSE
RETURNING id, name, description, created_at, updated_at`,
		id, name, description, actorID).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.ErrNotFound
	}
	if isUniqueViolation(err) {
		return Role{}, shared.ErrAlreadyExists
	}
	return role, err
}

// SoftDeleteRole retires a role, keeping the row for audit history.
func (r *Repository) SoftDeleteRole(ctx context.Context, id, actorID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET is_deleted = TRUE, updated_by = $2, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id, actorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListPermissions returns all non-deleted permissions ordered by name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM permissions WHERE is_deleted = FALSE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// GetPermission fetches a non-deleted permission by ID.
func (r *Repository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM permissions WHERE id = $1 AND is_deleted = FALSE`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, shared.ErrNotFound
	}
	return p, err
}

// InsertPermission creates a permission.
func (r *Repository) InsertPermission(ctx context.Context, name, description string, actorID int64) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `
INSERT INTO permissions (name, description, created_by, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
RETURNING id, name, description, created_at, updated_at`,
		name, description, actorID).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return Permission{}, shared.ErrAlreadyExists
	}
	return p, err
}

// UpdatePermission renames a non-deleted permission.
func (r *Repository) UpdatePermission(ctx context.Context, id int64, name, description string, actorID int64) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `
UPDATE permissions SET name = $2, description = $3, updated_by = $4, updated_at = NOW()
WHERE id = $1 AND is_deleted = FALSE
RETURNING id, name, description, created_at, updated_at`,
		id, name, description, actorID).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, shared.ErrNotFound
	}
	if isUniqueViolation(err) {
		return Permission{}, shared.ErrAlreadyExists
	}
	return p, err
}

// SoftDeletePermission retires a permission. Assignment rows stay in place;
// the permission simply stops resolving.
func (r *Repository) SoftDeletePermission(ctx context.Context, id, actorID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE permissions SET is_deleted = TRUE, updated_by = $2, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id, actorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RoleIDByName resolves a non-deleted role's id.
func (r *Repository) RoleIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1 AND is_deleted = FALSE`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return id, err
}

// ResolvePermissions returns the names of non-deleted permissions reachable
// through non-deleted assignments of the role, sorted and deduplicated.
func (r *Repository) ResolvePermissions(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
SELECT DISTINCT p.name
FROM role_permissions rp
JOIN permissions p ON p.id = rp.permission_id AND p.is_deleted = FALSE
WHERE rp.role_id = $1 AND rp.is_deleted = FALSE
ORDER BY p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	perms := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, name)
	}
	return perms, rows.Err()
}

// ListAssignments returns the active assignments of a role.
func (r *Repository) ListAssignments(ctx context.Context, roleID int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, role_id, permission_id, created_at FROM role_permissions WHERE role_id = $1 AND is_deleted = FALSE ORDER BY id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.RoleID, &a.PermissionID, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// RolesWithPermission lists the roles that ever held the permission,
// including retired assignments, for cache invalidation.
func (r *Repository) RolesWithPermission(ctx context.Context, permissionID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT role_id FROM role_permissions WHERE permission_id = $1`, permissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roleIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		roleIDs = append(roleIDs, id)
	}
	return roleIDs, rows.Err()
}

func (t *txRepository) RoleActive(ctx context.Context, id int64) (bool, error) {
	return t.activeRowExists(ctx, "roles", id)
}

func (t *txRepository) PermissionActive(ctx context.Context, id int64) (bool, error) {
	return t.activeRowExists(ctx, "permissions", id)
}

func (t *txRepository) activeRowExists(ctx context.Context, table string, id int64) (bool, error) {
	var exists bool
	// table is one of two compile-time constants, never user input.
	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE id = $1 AND is_deleted = FALSE)`
	err := t.tx.QueryRow(ctx, query, id).Scan(&exists)
	return exists, err
}

func (t *txRepository) AssignmentActive(ctx context.Context, roleID, permissionID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM role_permissions WHERE role_id = $1 AND permission_id = $2 AND is_deleted = FALSE)`, roleID, permissionID).Scan(&exists)
	return exists, err
}

func (t *txRepository) InsertAssignment(ctx context.Context, roleID, permissionID, actorID int64) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id, created_by, created_at, updated_at) VALUES ($1, $2, $3, NOW(), NOW())`, roleID, permissionID, actorID)
	if isUniqueViolation(err) {
		return fmt.Errorf("active assignment exists: %w", shared.ErrAlreadyAssigned)
	}
	return err
}

func (t *txRepository) SoftDeleteAssignment(ctx context.Context, roleID, permissionID, actorID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE role_permissions SET is_deleted = TRUE, updated_by = $3, updated_at = NOW() WHERE role_id = $1 AND permission_id = $2 AND is_deleted = FALSE`, roleID, permissionID, actorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
