package repositories

import (
	"context"

	"github.com/makerforge/printdesk/internal/domain/entities"
)

// UserRepository is the persistence contract for provisioned users
type UserRepository interface {
	// GetByExternalID retrieves a user by the provider subject identifier.
	// Returns ErrUserNotFound if no record exists.
	GetByExternalID(ctx context.Context, externalID string) (*entities.User, error)

	// Create persists a new user. Returns ErrUserExists if a record with
	// the same external ID is already present; must be atomic under
	// concurrent calls for the same external ID.
	Create(ctx context.Context, user *entities.User) error

	// List returns all users ordered by creation time
	List(ctx context.Context) ([]*entities.User, error)
}
