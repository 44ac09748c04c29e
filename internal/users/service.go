package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/stocklane-erp/stocklane/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, u User, passwordHash string, actorID int64) (int64, error)
	Update(ctx context.Context, u User, passwordHash string, actorID int64) error
	SoftDelete(ctx context.Context, id, actorID int64) error
	RoleExists(ctx context.Context, roleID int64) (bool, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user management business logic.
type Service struct {
	repo       RepositoryPort
	audit      AuditPort
	logger     *slog.Logger
	bcryptCost int
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, audit: audit, logger: logger, bcryptCost: bcryptCost}
}

// List returns all active users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// CreateInput carries the fields for creating a user.
type CreateInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
	IsActive  bool
	RoleID    *int64
}

// Create adds a user account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID int64) (User, error) {
	if err := s.checkRole(ctx, input.RoleID); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	id, err := s.repo.Create(ctx, User{
		Username:  input.Username,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		IsActive:  input.IsActive,
		RoleID:    input.RoleID,
	}, string(hash), actorID)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "user.create", id, map[string]any{"username": input.Username})
	return s.repo.Get(ctx, id)
}

// UpdateInput carries the fields for updating a user. Password is optional;
// when empty the stored hash is kept.
type UpdateInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
	IsActive  bool
	RoleID    *int64
}

// Update rewrites a user account, re-hashing the password when one is given.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput, actorID int64) (User, error) {
	if err := s.checkRole(ctx, input.RoleID); err != nil {
		return User{}, err
	}
	var hash string
	if input.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
		if err != nil {
			return User{}, fmt.Errorf("users: hash password: %w", err)
		}
		hash = string(h)
	}
	err := s.repo.Update(ctx, User{
		ID:        id,
		Username:  input.Username,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		IsActive:  input.IsActive,
		RoleID:    input.RoleID,
	}, hash, actorID)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "user.update", id, map[string]any{"username": input.Username})
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes a user account. Outstanding tokens stay valid until
// they expire; deletion stops new logins immediately.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	if err := s.repo.SoftDelete(ctx, id, actorID); err != nil {
		return err
	}
	s.record(ctx, actorID, "user.delete", id, nil)
	return nil
}

func (s *Service) checkRole(ctx context.Context, roleID *int64) error {
	if roleID == nil {
		return nil
	}
	exists, err := s.repo.RoleExists(ctx, *roleID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("role %d: %w", *roleID, shared.ErrNotFound)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
