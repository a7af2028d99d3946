package repositories

import "errors"

// Domain-specific repository errors
var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when creating a user whose external ID
	// is already taken
	ErrUserExists = errors.New("user already exists")
)
