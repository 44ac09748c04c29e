package rbac

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stocklane-erp/stocklane/internal/shared"
	_ "github.com/stocklane-erp/stocklane/testing"
)

type memoryAssignment struct {
	roleID       int64
	permissionID int64
	deleted      bool
}

type memoryRepo struct {
	roles        map[int64]Role
	rolesDeleted map[int64]bool
	perms        map[int64]Permission
	permsDeleted map[int64]bool
	assignments  []*memoryAssignment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		roles:        map[int64]Role{},
		rolesDeleted: map[int64]bool{},
		perms:        map[int64]Permission{},
		permsDeleted: map[int64]bool{},
	}
}

func (m *memoryRepo) addRole(id int64, name string) {
	m.roles[id] = Role{ID: id, Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
}

func (m *memoryRepo) addPermission(id int64, name string) {
	m.perms[id] = Permission{ID: id, Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: m})
}

func (m *memoryRepo) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	for id, r := range m.roles {
		if !m.rolesDeleted[id] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	r, ok := m.roles[id]
	if !ok || m.rolesDeleted[id] {
		return Role{}, shared.ErrNotFound
	}
	return r, nil
}

func (m *memoryRepo) InsertRole(ctx context.Context, name, description string, actorID int64) (Role, error) {
	id := int64(len(m.roles) + 1)
	m.addRole(id, name)
	return m.roles[id], nil
}

func (m *memoryRepo) UpdateRole(ctx context.Context, id int64, name, description string, actorID int64) (Role, error) {
	if _, err := m.GetRole(ctx, id); err != nil {
		return Role{}, err
	}
	r := m.roles[id]
	r.Name = name
	m.roles[id] = r
	return r, nil
}

func (m *memoryRepo) SoftDeleteRole(ctx context.Context, id, actorID int64) (bool, error) {
	if _, ok := m.roles[id]; !ok || m.rolesDeleted[id] {
		return false, nil
	}
	m.rolesDeleted[id] = true
	return true, nil
}

func (m *memoryRepo) ListPermissions(ctx context.Context) ([]Permission, error) {
	var out []Permission
	for id, p := range m.perms {
		if !m.permsDeleted[id] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetPermission(ctx context.Context, id int64) (Permission, error) {
	p, ok := m.perms[id]
	if !ok || m.permsDeleted[id] {
		return Permission{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) InsertPermission(ctx context.Context, name, description string, actorID int64) (Permission, error) {
	id := int64(len(m.perms) + 1)
	m.addPermission(id, name)
	return m.perms[id], nil
}

func (m *memoryRepo) UpdatePermission(ctx context.Context, id int64, name, description string, actorID int64) (Permission, error) {
	if _, err := m.GetPermission(ctx, id); err != nil {
		return Permission{}, err
	}
	p := m.perms[id]
	p.Name = name
	m.perms[id] = p
	return p, nil
}

func (m *memoryRepo) SoftDeletePermission(ctx context.Context, id, actorID int64) (bool, error) {
	if _, ok := m.perms[id]; !ok || m.permsDeleted[id] {
		return false, nil
	}
	m.permsDeleted[id] = true
	return true, nil
}

func (m *memoryRepo) RoleIDByName(ctx context.Context, name string) (int64, error) {
	for id, r := range m.roles {
		if r.Name == name && !m.rolesDeleted[id] {
			return id, nil
		}
	}
	return 0, shared.ErrNotFound
}

func (m *memoryRepo) ResolvePermissions(ctx context.Context, roleID int64) ([]string, error) {
	var out []string
	for _, a := range m.assignments {
		if a.roleID != roleID || a.deleted || m.permsDeleted[a.permissionID] {
			continue
		}
		out = append(out, m.perms[a.permissionID].Name)
	}
	return out, nil
}

func (m *memoryRepo) ListAssignments(ctx context.Context, roleID int64) ([]Assignment, error) {
	var out []Assignment
	for i, a := range m.assignments {
		if a.roleID == roleID && !a.deleted {
			out = append(out, Assignment{ID: int64(i + 1), RoleID: a.roleID, PermissionID: a.permissionID})
		}
	}
	return out, nil
}

func (m *memoryRepo) RolesWithPermission(ctx context.Context, permissionID int64) ([]int64, error) {
	seen := map[int64]bool{}
	var out []int64
	for _, a := range m.assignments {
		if a.permissionID == permissionID && !seen[a.roleID] {
			seen[a.roleID] = true
			out = append(out, a.roleID)
		}
	}
	return out, nil
}

type memoryTx struct {
	repo *memoryRepo
	// skipActiveCheck makes AssignmentActive lie, standing in for a
	// concurrent assign that lands between the fast-path check and the
	// insert. The unique constraint is the authority, not the check.
	skipActiveCheck bool
}

func (t *memoryTx) RoleActive(ctx context.Context, id int64) (bool, error) {
	_, ok := t.repo.roles[id]
	return ok && !t.repo.rolesDeleted[id], nil
}

func (t *memoryTx) PermissionActive(ctx context.Context, id int64) (bool, error) {
	_, ok := t.repo.perms[id]
	return ok && !t.repo.permsDeleted[id], nil
}

func (t *memoryTx) AssignmentActive(ctx context.Context, roleID, permissionID int64) (bool, error) {
	if t.skipActiveCheck {
		return false, nil
	}
	for _, a := range t.repo.assignments {
		if a.roleID == roleID && a.permissionID == permissionID && !a.deleted {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) InsertAssignment(ctx context.Context, roleID, permissionID, actorID int64) error {
	for _, a := range t.repo.assignments {
		if a.roleID == roleID && a.permissionID == permissionID && !a.deleted {
			return fmt.Errorf("active assignment exists: %w", shared.ErrAlreadyAssigned)
		}
	}
	t.repo.assignments = append(t.repo.assignments, &memoryAssignment{roleID: roleID, permissionID: permissionID})
	return nil
}

func (t *memoryTx) SoftDeleteAssignment(ctx context.Context, roleID, permissionID, actorID int64) (bool, error) {
	for _, a := range t.repo.assignments {
		if a.roleID == roleID && a.permissionID == permissionID && !a.deleted {
			a.deleted = true
			return true, nil
		}
	}
	return false, nil
}

type racyRepo struct {
	*memoryRepo
}

func (r *racyRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r.memoryRepo, skipActiveCheck: true})
}

func newTestService(repo RepositoryPort) *Service {
	return NewService(repo, nil, nil, nil)
}

func TestAssignRejectsDuplicate(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRole(1, "clerk")
	repo.addPermission(10, shared.PermViewStocks)
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Assign(ctx, 1, 10, 99))

	err := svc.Assign(ctx, 1, 10, 99)
	require.ErrorIs(t, err, shared.ErrAlreadyAssigned)

	// Still exactly one active assignment.
	assignments, err := svc.ListRoleAssignments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
}

func TestAssignDuplicateCaughtByConstraint(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRole(1, "clerk")
	repo.addPermission(10, shared.PermViewStocks)
	svc := newTestService(&racyRepo{repo})
	ctx := context.Background()

	require.NoError(t, svc.Assign(ctx, 1, 10, 99))

	err := svc.Assign(ctx, 1, 10, 99)
	require.ErrorIs(t, err, shared.ErrAlreadyAssigned)
}

func TestAssignUnknownRoleOrPermission(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRole(1, "clerk")
	repo.addPermission(10, shared.PermViewStocks)
	svc := newTestService(repo)
	ctx := context.Background()

	err := svc.Assign(ctx, 42, 10, 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Contains(t, err.Error(), "role 42")

	err = svc.Assign(ctx, 1, 42, 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Contains(t, err.Error(), "permission 42")
}

func TestUnassignRemovesPermissionFromResolvedSet(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRole(1, "clerk")
	repo.addPermission(10, shared.PermViewStocks)
	repo.addPermission(11, shared.PermCreateStocks)
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Assign(ctx, 1, 10, 99))
	require.NoError(t, svc.Assign(ctx, 1, 11, 99))

	perms, err := svc.ResolveRolePermissions(ctx, 1)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{shared.PermViewStocks, shared.PermCreateStocks}, perms)

	require.NoError(t, svc.Unassign(ctx, 1, 11, 99))

	perms, err = svc.ResolveRolePermissions(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{shared.PermViewStocks}, perms)
}

func TestUnassignMissingAssignment(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRole(1, "clerk")
	repo.addPermission(10, shared.PermViewStocks)
	svc := newTestService(repo)

	err := svc.Unassign(context.Background(), 1, 10, 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUnassignThenReassign(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRole(1, "clerk")
	repo.addPermission(10, shared.PermViewStocks)
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Assign(ctx, 1, 10, 99))
	require.NoError(t, svc.Unassign(ctx, 1, 10, 99))
	require.NoError(t, svc.Assign(ctx, 1, 10, 99))

	perms, err := svc.ResolveRolePermissions(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{shared.PermViewStocks}, perms)
}

func TestDeletedPermissionStopsResolving(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRole(1, "clerk")
	repo.addPermission(10, shared.PermViewStocks)
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Assign(ctx, 1, 10, 99))
	require.NoError(t, svc.DeletePermission(ctx, 10, 99))

	perms, err := svc.ResolveRolePermissions(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestAssignInvalidatesCachedResolution(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRole(1, "clerk")
	repo.addPermission(10, shared.PermViewStocks)
	repo.addPermission(11, shared.PermCreateStocks)
	svc := NewService(repo, newTestCache(t), nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Assign(ctx, 1, 10, 99))

	perms, err := svc.ResolveRolePermissions(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{shared.PermViewStocks}, perms)

	// The second assign must not be masked by the now-cached set.
	require.NoError(t, svc.Assign(ctx, 1, 11, 99))

	perms, err = svc.ResolveRolePermissions(ctx, 1)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{shared.PermViewStocks, shared.PermCreateStocks}, perms)
}
