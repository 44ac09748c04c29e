package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login or token validation failure.
	// Every authentication failure collapses into this value so that
	// callers cannot distinguish unknown users from bad passwords.
	ErrInvalidCredentials = errors.New("could not validate credentials")
	// ErrAlreadyExists occurs when a unique name is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrAlreadyAssigned occurs when a permission is already attached to a role.
	ErrAlreadyAssigned = errors.New("permission already assigned to role")
)
