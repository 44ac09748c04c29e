package auth

import "time"

// User represents an authenticated user account. RoleID is nil for users
// without a role; such users resolve to an empty permission set and cannot
// be issued a working token.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	PasswordHash string
	IsActive     bool
	RoleID       *int64
	RoleName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
