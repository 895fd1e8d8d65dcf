package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clubevents/internal/domain"
)

type userService struct {
	userRepo domain.UserRepository
}

// NewUserService creates a UserService with the given repository.
func NewUserService(userRepo domain.UserRepository) domain.UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile persists the user's editable profile fields. Email changes go
// through the email change flow, not through here.
func (s *userService) UpdateProfile(ctx context.Context, user *domain.User) error {
	current, err := s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	current.FirstName = strings.TrimSpace(user.FirstName)
	current.FamilyName = strings.TrimSpace(user.FamilyName)
	if current.FirstName == "" || current.FamilyName == "" {
		return fmt.Errorf("%w: first and family name are required", domain.ErrInvalidInput)
	}
	current.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, current); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	*user = *current
	return nil
}

func (s *userService) List(ctx context.Context, roleFilter *domain.Role, search string, params domain.PaginationParams) ([]*domain.User, int, error) {
	users, total, err := s.userRepo.List(ctx, roleFilter, strings.TrimSpace(search), params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *userService) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}

func (s *userService) Delete(ctx context.Context, userID string) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
