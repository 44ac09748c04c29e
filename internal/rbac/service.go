package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/stocklane-erp/stocklane/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates RBAC operations: role and permission CRUD, permission
// resolution and role-permission assignment.
type Service struct {
	repo   RepositoryPort
	cache  *PermissionCache
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs a Service over the repository port. Cache and audit
// are optional.
func NewService(repo RepositoryPort, cache *PermissionCache, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, audit: audit, logger: logger}
}

// ListRoles returns all non-deleted roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a non-deleted role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	role, err := s.repo.GetRole(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return Role{}, fmt.Errorf("role %d: %w", id, shared.ErrNotFound)
	}
	return role, err
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string, actorID int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	role, err := s.repo.InsertRole(ctx, name, strings.TrimSpace(description), actorID)
	if errors.Is(err, shared.ErrAlreadyExists) {
		return Role{}, fmt.Errorf("role %q: %w", name, shared.ErrAlreadyExists)
	}
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.create", "role", role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// UpdateRole updates name and description of an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string, actorID int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	role, err := s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description), actorID)
	if errors.Is(err, shared.ErrNotFound) {
		return Role{}, fmt.Errorf("role %d: %w", id, shared.ErrNotFound)
	}
	if errors.Is(err, shared.ErrAlreadyExists) {
		return Role{}, fmt.Errorf("role %q: %w", name, shared.ErrAlreadyExists)
	}
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.update", "role", role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// DeleteRole soft-deletes a role. The row is retained for audit history.
func (s *Service) DeleteRole(ctx context.Context, id int64, actorID int64) error {
	deleted, err := s.repo.SoftDeleteRole(ctx, id, actorID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("role %d: %w", id, shared.ErrNotFound)
	}
	s.cache.Invalidate(ctx, id)
	s.record(ctx, actorID, "role.delete", "role", id, nil)
	return nil
}

// ListPermissions returns all non-deleted permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// GetPermission fetches a non-deleted permission by ID.
func (s *Service) GetPermission(ctx context.Context, id int64) (Permission, error) {
	p, err := s.repo.GetPermission(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return Permission{}, fmt.Errorf("permission %d: %w", id, shared.ErrNotFound)
	}
	return p, err
}

// CreatePermission inserts a new permission.
func (s *Service) CreatePermission(ctx context.Context, name, description string, actorID int64) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, errors.New("rbac: permission name required")
	}
	p, err := s.repo.InsertPermission(ctx, name, strings.TrimSpace(description), actorID)
	if errors.Is(err, shared.ErrAlreadyExists) {
		return Permission{}, fmt.Errorf("permission %q: %w", name, shared.ErrAlreadyExists)
	}
	if err != nil {
		return Permission{}, err
	}
	s.record(ctx, actorID, "permission.create", "permission", p.ID, map[string]any{"name": p.Name})
	return p, nil
}

// UpdatePermission updates name and description of an existing permission.
func (s *Service) UpdatePermission(ctx context.Context, id int64, name, description string, actorID int64) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, errors.New("rbac: permission name required")
	}
	p, err := s.repo.UpdatePermission(ctx, id, name, strings.TrimSpace(description), actorID)
	if errors.Is(err, shared.ErrNotFound) {
		return Permission{}, fmt.Errorf("permission %d: %w", id, shared.ErrNotFound)
	}
	if errors.Is(err, shared.ErrAlreadyExists) {
		return Permission{}, fmt.Errorf("permission %q: %w", name, shared.ErrAlreadyExists)
	}
	if err != nil {
		return Permission{}, err
	}
	s.invalidateRolesWithPermission(ctx, id)
	s.record(ctx, actorID, "permission.update", "permission", p.ID, map[string]any{"name": p.Name})
	return p, nil
}

// DeletePermission soft-deletes a permission. Roles keep their assignment
// rows, but the permission stops resolving.
func (s *Service) DeletePermission(ctx context.Context, id int64, actorID int64) error {
	deleted, err := s.repo.SoftDeletePermission(ctx, id, actorID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("permission %d: %w", id, shared.ErrNotFound)
	}
	s.invalidateRolesWithPermission(ctx, id)
	s.record(ctx, actorID, "permission.delete", "permission", id, nil)
	return nil
}

// ResolveRolePermissions returns the effective permission set of a role: the
// names of non-deleted permissions reachable via non-deleted assignments.
// The query is read-only; the result may be served from cache.
func (s *Service) ResolveRolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	return s.cache.Get(ctx, roleID, func(ctx context.Context) ([]string, error) {
		return s.repo.ResolvePermissions(ctx, roleID)
	})
}

// ResolveRolePermissionsByName looks the role up among non-deleted roles and
// resolves its permission set. Used by the token issuer.
func (s *Service) ResolveRolePermissionsByName(ctx context.Context, roleName string) ([]string, error) {
	roleID, err := s.repo.RoleIDByName(ctx, roleName)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("role %q: %w", roleName, shared.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s.ResolveRolePermissions(ctx, roleID)
}

// ListRoleAssignments returns the active assignments of a role.
func (s *Service) ListRoleAssignments(ctx context.Context, roleID int64) ([]Assignment, error) {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repo.ListAssignments(ctx, roleID)
}

// Assign attaches a permission to a role. The whole lookup-then-insert runs
// in one transaction; the partial unique index on active (role_id,
// permission_id) pairs is the authoritative guard against concurrent
// assigns, the existence check is only a fast path.
func (s *Service) Assign(ctx context.Context, roleID, permissionID, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := requireActive(ctx, tx.RoleActive, "role", roleID); err != nil {
			return err
		}
		if err := requireActive(ctx, tx.PermissionActive, "permission", permissionID); err != nil {
			return err
		}
		active, err := tx.AssignmentActive(ctx, roleID, permissionID)
		if err != nil {
			return err
		}
		if active {
			return fmt.Errorf("role %d, permission %d: %w", roleID, permissionID, shared.ErrAlreadyAssigned)
		}
		if err := tx.InsertAssignment(ctx, roleID, permissionID, actorID); err != nil {
			if errors.Is(err, shared.ErrAlreadyAssigned) {
				return fmt.Errorf("role %d, permission %d: %w", roleID, permissionID, shared.ErrAlreadyAssigned)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, roleID)
	s.record(ctx, actorID, "role.assign_permission", "role", roleID, map[string]any{"permission_id": permissionID})
	return nil
}

// Unassign soft-deletes an active assignment; the row is retained for audit.
func (s *Service) Unassign(ctx context.Context, roleID, permissionID, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := requireActive(ctx, tx.RoleActive, "role", roleID); err != nil {
			return err
		}
		if err := requireActive(ctx, tx.PermissionActive, "permission", permissionID); err != nil {
			return err
		}
		deleted, err := tx.SoftDeleteAssignment(ctx, roleID, permissionID, actorID)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("assignment of permission %d to role %d: %w", permissionID, roleID, shared.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, roleID)
	s.record(ctx, actorID, "role.unassign_permission", "role", roleID, map[string]any{"permission_id": permissionID})
	return nil
}

func requireActive(ctx context.Context, check func(context.Context, int64) (bool, error), entity string, id int64) error {
	active, err := check(ctx, id)
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("%s %d: %w", entity, id, shared.ErrNotFound)
	}
	return nil
}

func (s *Service) invalidateRolesWithPermission(ctx context.Context, permissionID int64) {
	if s.cache == nil {
		return
	}
	roleIDs, err := s.repo.RolesWithPermission(ctx, permissionID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("invalidate permission cache", slog.Any("error", err))
		}
		return
	}
	s.cache.Invalidate(ctx, roleIDs...)
}

func (s *Service) record(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
