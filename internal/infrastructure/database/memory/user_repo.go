package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/makerforge/printdesk/internal/domain/entities"
	"github.com/makerforge/printdesk/internal/domain/repositories"
)

// UserRepository is an in-memory UserRepository used in tests and when the
// portal runs without a database configured. The mutex makes Create an
// atomic check-and-insert, so concurrent first logins for the same subject
// cannot produce two records.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]entities.User
}

// NewUserRepository creates an empty in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]entities.User),
	}
}

// GetByExternalID retrieves a user by the provider subject identifier
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[externalID]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}

	// Copy so callers cannot mutate the stored record
	out := user
	return &out, nil
}

// Create persists a new user, failing if the external ID is taken
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ExternalID]; ok {
		return repositories.ErrUserExists
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	r.users[user.ExternalID] = *user
	return nil
}

// List returns all users ordered by creation time
func (r *UserRepository) List(ctx context.Context) ([]*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.User, 0, len(r.users))
	for _, u := range r.users {
		copied := u
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

// Ensure UserRepository implements repositories.UserRepository
var _ repositories.UserRepository = (*UserRepository)(nil)
