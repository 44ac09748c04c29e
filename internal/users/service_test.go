package users_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stocklane-erp/stocklane/internal/shared"
	"github.com/stocklane-erp/stocklane/internal/users"
	_ "github.com/stocklane-erp/stocklane/testing"
)

type memoryRepo struct {
	byID    map[int64]users.User
	hashes  map[int64]string
	roles   map[int64]bool
	nextID  int64
	deleted map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		byID:    make(map[int64]users.User),
		hashes:  make(map[int64]string),
		roles:   map[int64]bool{1: true},
		deleted: make(map[int64]bool),
	}
}

func (r *memoryRepo) List(ctx context.Context) ([]users.User, error) {
	var out []users.User
	for id, u := range r.byID {
		if !r.deleted[id] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (users.User, error) {
	u, ok := r.byID[id]
	if !ok || r.deleted[id] {
		return users.User{}, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return u, nil
}

func (r *memoryRepo) Create(ctx context.Context, u users.User, passwordHash string, actorID int64) (int64, error) {
	for id, existing := range r.byID {
		if existing.Username == u.Username && !r.deleted[id] {
			return 0, fmt.Errorf("username %q: %w", u.Username, shared.ErrAlreadyExists)
		}
	}
	r.nextID++
	u.ID = r.nextID
	r.byID[u.ID] = u
	r.hashes[u.ID] = passwordHash
	return u.ID, nil
}

func (r *memoryRepo) Update(ctx context.Context, u users.User, passwordHash string, actorID int64) error {
	if _, ok := r.byID[u.ID]; !ok || r.deleted[u.ID] {
		return fmt.Errorf("user %d: %w", u.ID, shared.ErrNotFound)
	}
	r.byID[u.ID] = u
	if passwordHash != "" {
		r.hashes[u.ID] = passwordHash
	}
	return nil
}

func (r *memoryRepo) SoftDelete(ctx context.Context, id, actorID int64) error {
	if _, ok := r.byID[id]; !ok || r.deleted[id] {
		return fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	r.deleted[id] = true
	return nil
}

func (r *memoryRepo) RoleExists(ctx context.Context, roleID int64) (bool, error) {
	return r.roles[roleID], nil
}

func newService(repo *memoryRepo) *users.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return users.NewService(repo, nil, logger, bcrypt.MinCost)
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)

	roleID := int64(1)
	user, err := svc.Create(context.Background(), users.CreateInput{
		Username: "alice",
		Password: "opensesame42",
		IsActive: true,
		RoleID:   &roleID,
	}, 99)
	require.NoError(t, err)
	require.NotZero(t, user.ID)

	hash := repo.hashes[user.ID]
	require.NotEqual(t, "opensesame42", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("opensesame42")))
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)

	roleID := int64(42)
	_, err := svc.Create(context.Background(), users.CreateInput{
		Username: "bob",
		Password: "opensesame42",
		RoleID:   &roleID,
	}, 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateKeepsPasswordWhenOmitted(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)

	user, err := svc.Create(context.Background(), users.CreateInput{
		Username: "carol",
		Password: "opensesame42",
		IsActive: true,
	}, 99)
	require.NoError(t, err)
	originalHash := repo.hashes[user.ID]

	_, err = svc.Update(context.Background(), user.ID, users.UpdateInput{
		Username: "carol",
		Email:    "carol@example.com",
		IsActive: true,
	}, 99)
	require.NoError(t, err)
	require.Equal(t, originalHash, repo.hashes[user.ID])

	_, err = svc.Update(context.Background(), user.ID, users.UpdateInput{
		Username: "carol",
		Password: "freshsecret99",
		IsActive: true,
	}, 99)
	require.NoError(t, err)
	require.NotEqual(t, originalHash, repo.hashes[user.ID])
}

func TestDeleteIsSoft(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)

	user, err := svc.Create(context.Background(), users.CreateInput{
		Username: "dave",
		Password: "opensesame42",
	}, 99)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), user.ID, 99))

	_, err = svc.Get(context.Background(), user.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.ErrorIs(t, svc.Delete(context.Background(), user.ID, 99), shared.ErrNotFound)
}
