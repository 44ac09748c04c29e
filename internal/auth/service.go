package auth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/stocklane-erp/stocklane/internal/shared"
)

// RepositoryPort defines data access methods required by the Service.
type RepositoryPort interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, user User) (int64, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo       RepositoryPort
	logger     *slog.Logger
	bcryptCost int
}

// NewService constructs a new Service.
func NewService(repo RepositoryPort, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, logger: logger, bcryptCost: bcryptCost}
}

// Authenticate validates username/password credentials. Every failure mode
// collapses into shared.ErrInvalidCredentials; the actual reason is only
// logged, never surfaced, so usernames cannot be enumerated.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		s.warn("login failed: unknown user", username)
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.warn("login failed: inactive account", username)
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.warn("login failed: password mismatch", username)
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
	RoleID    *int64
}

// Register creates a new active user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, input RegisterInput) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("auth: hash password: %w", err)
	}
	id, err := s.repo.CreateUser(ctx, User{
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: string(hash),
		IsActive:     true,
		RoleID:       input.RoleID,
	})
	if err != nil {
		return 0, fmt.Errorf("auth: create user %q: %w", input.Username, err)
	}
	return id, nil
}

func (s *Service) warn(msg, username string) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.String("username", username))
	}
}
