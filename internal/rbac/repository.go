package rbac

import "context"

// TxRepository exposes the data access needed inside an assignment
// transaction.
type TxRepository interface {
	RoleActive(ctx context.Context, id int64) (bool, error)
	PermissionActive(ctx context.Context, id int64) (bool, error)
	AssignmentActive(ctx context.Context, roleID, permissionID int64) (bool, error)
	// InsertAssignment returns shared.ErrAlreadyAssigned when the partial
	// unique index on active pairs rejects the row.
	InsertAssignment(ctx context.Context, roleID, permissionID, actorID int64) error
	// SoftDeleteAssignment reports whether an active assignment was retired.
	SoftDeleteAssignment(ctx context.Context, roleID, permissionID, actorID int64) (bool, error)
}

// RepositoryPort abstracts repository usage for the service. Lookup methods
// return shared.ErrNotFound for missing or soft-deleted rows and
// shared.ErrAlreadyExists on duplicate names; naming the entity is the
// service's job.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	InsertRole(ctx context.Context, name, description string, actorID int64) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string, actorID int64) (Role, error)
	SoftDeleteRole(ctx context.Context, id, actorID int64) (bool, error)

	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, id int64) (Permission, error)
	InsertPermission(ctx context.Context, name, description string, actorID int64) (Permission, error)
	UpdatePermission(ctx context.Context, id int64, name, description string, actorID int64) (Permission, error)
	SoftDeletePermission(ctx context.Context, id, actorID int64) (bool, error)

	RoleIDByName(ctx context.Context, name string) (int64, error)
	ResolvePermissions(ctx context.Context, roleID int64) ([]string, error)
	ListAssignments(ctx context.Context, roleID int64) ([]Assignment, error)
	RolesWithPermission(ctx context.Context, permissionID int64) ([]int64, error)
}
