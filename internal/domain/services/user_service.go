package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/makerforge/printdesk/internal/auth/oidc"
	"github.com/makerforge/printdesk/internal/domain/entities"
	"github.com/makerforge/printdesk/internal/domain/repositories"
)

// UserService provides business logic for user provisioning and lookup
type UserService struct {
	userRepo repositories.UserRepository
	log      *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
		log:      slog.Default().With(slog.String("service", "user")),
	}
}

// ProvisionIfAbsent creates a local user for a verified identity on first
// login and returns the existing record on every later login. First write
// wins: an existing record is never refreshed from newer claims. A create
// race with another login for the same subject is absorbed by re-reading
// the winner's record.
func (s *UserService) ProvisionIfAbsent(ctx context.Context, identity *oidc.Identity) (*entities.User, error) {
	user, err := s.userRepo.GetByExternalID(ctx, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	newUser := &entities.User{
		ExternalID:        identity.Subject,
		DisplayName:       identity.Name,
		Email:             identity.Email,
		ProfilePictureURL: identity.Picture,
		CreatedAt:         time.Now(),
	}

	err = s.userRepo.Create(ctx, newUser)
	if err == nil {
		s.log.Info("provisioned new user",
			slog.String("external_id", newUser.ExternalID),
			slog.String("email", newUser.Email))
		return newUser, nil
	}

	if errors.Is(err, repositories.ErrUserExists) {
		// Lost the race against a concurrent first login; the record
		// created by the winner is authoritative.
		return s.userRepo.GetByExternalID(ctx, identity.Subject)
	}

	return nil, fmt.Errorf("failed to provision user: %w", err)
}

// GetUser retrieves a user by external ID
func (s *UserService) GetUser(ctx context.Context, externalID string) (*entities.User, error) {
	return s.userRepo.GetByExternalID(ctx, externalID)
}

// ListUsers returns all provisioned users
func (s *UserService) ListUsers(ctx context.Context) ([]*entities.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
