package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/makerforge/printdesk/internal/domain/entities"
	"github.com/makerforge/printdesk/internal/domain/repositories"
)

// UserRepository implements the UserRepository interface for PostgreSQL
type UserRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sqlx.DB) repositories.UserRepository {
	return &UserRepository{
		db:  db,
		log: slog.Default().With(slog.String("repo", "user")),
	}
}

// GetByExternalID retrieves a user by the provider subject identifier
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*entities.User, error) {
	var user entities.User
	query := `
		SELECT external_id, display_name, email, profile_picture_url, created_at
		FROM users
		WHERE external_id = $1`

	err := r.db.GetContext(ctx, &user, query, externalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Create persists a new user. The external_id primary key plus
// ON CONFLICT DO NOTHING makes this an atomic check-and-insert: when two
// first logins race, exactly one row is written and the loser sees
// ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	r.log.Debug("creating user",
		slog.String("external_id", user.ExternalID),
		slog.String("email", user.Email))

	query := `
		INSERT INTO users (external_id, display_name, email, profile_picture_url, created_at)
		VALUES (:external_id, :display_name, :email, :profile_picture_url, :created_at)
		ON CONFLICT (external_id) DO NOTHING`

	result, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repositories.ErrUserExists
	}

	return nil
}

// List returns all users ordered by creation time
func (r *UserRepository) List(ctx context.Context) ([]*entities.User, error) {
	var users []*entities.User
	query := `
		SELECT external_id, display_name, email, profile_picture_url, created_at
		FROM users
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &users, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}
