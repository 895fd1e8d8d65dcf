package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"clubevents/internal/domain"
)

var slugSeparatorRegexp = regexp.MustCompile(`[^a-z0-9]+`)

type groupService struct {
	groupRepo  domain.GroupRepository
	memberRepo domain.GroupMemberRepository
}

// NewGroupService creates a GroupService with the given repositories.
func NewGroupService(groupRepo domain.GroupRepository, memberRepo domain.GroupMemberRepository) domain.GroupService {
	return &groupService{groupRepo: groupRepo, memberRepo: memberRepo}
}

func (s *groupService) CreateGroup(ctx context.Context, group *domain.Group) error {
	name := strings.TrimSpace(group.Name)
	if name == "" {
		return fmt.Errorf("%w: group name is required", domain.ErrInvalidInput)
	}
	slug := group.Slug
	if slug == "" {
		slug = slugify(name)
	}
	g := domain.NewGroup(name, slug, group.Description, group.LogoURL, time.Now())
	if err := s.groupRepo.Create(ctx, g); err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	*group = *g
	return nil
}

func (s *groupService) GetBySlug(ctx context.Context, slug string) (*domain.Group, error) {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

func (s *groupService) UpdateGroup(ctx context.Context, group *domain.Group) error {
	group.Name = strings.TrimSpace(group.Name)
	if group.Name == "" {
		return fmt.Errorf("%w: group name is required", domain.ErrInvalidInput)
	}
	group.UpdatedAt = time.Now()
	if err := s.groupRepo.Update(ctx, group); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update group: %w", err)
	}
	return nil
}

func (s *groupService) DeleteGroup(ctx context.Context, id string) error {
	if err := s.groupRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}

func (s *groupService) ListGroups(ctx context.Context, search string, params domain.PaginationParams) ([]*domain.Group, int, error) {
	groups, total, err := s.groupRepo.List(ctx, strings.TrimSpace(search), params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, total, nil
}

func (s *groupService) Join(ctx context.Context, groupID, userID string, role domain.MemberRole, callerRole domain.Role) (*domain.GroupMember, error) {
	// Joining as leader is a privileged act; anyone may join as spectator or member.
	if role == domain.MemberRoleLeader && !callerRole.AtLeast(domain.RoleManager) {
		return nil, domain.ErrForbidden
	}
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	member := &domain.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	if err := s.memberRepo.Add(ctx, member); err != nil {
		if errors.Is(err, domain.ErrAlreadyMember) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return member, nil
}

func (s *groupService) UpdateMemberRole(ctx context.Context, memberID string, role domain.MemberRole, callerID string, callerRole domain.Role) (*domain.GroupMember, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if member.UserID != callerID && !callerRole.AtLeast(domain.RoleManager) {
		return nil, domain.ErrForbidden
	}
	if role == domain.MemberRoleLeader && !callerRole.AtLeast(domain.RoleManager) {
		return nil, domain.ErrForbidden
	}
	if err := s.memberRepo.UpdateRole(ctx, memberID, role); err != nil {
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}
	member.Role = role
	return member, nil
}

func (s *groupService) RemoveMember(ctx context.Context, memberID, callerID string, callerRole domain.Role) error {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get member: %w", err)
	}
	if member.UserID != callerID && !callerRole.AtLeast(domain.RoleManager) {
		return domain.ErrForbidden
	}
	if err := s.memberRepo.Remove(ctx, memberID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

func (s *groupService) Leave(ctx context.Context, groupID, userID string) error {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get group: %w", err)
	}
	member, err := s.memberRepo.GetByGroupAndUser(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotMember
		}
		return fmt.Errorf("failed to get membership: %w", err)
	}
	if err := s.memberRepo.Remove(ctx, member.ID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

func (s *groupService) ListMembers(ctx context.Context, groupID string, roleFilter *domain.MemberRole, params domain.PaginationParams) ([]*domain.GroupMember, int, error) {
	members, total, err := s.memberRepo.ListByGroupID(ctx, groupID, roleFilter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}
	return members, total, nil
}

func (s *groupService) ListUserMemberships(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.MembershipWithGroup, int, error) {
	memberships, total, err := s.memberRepo.ListByUserID(ctx, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list user memberships: %w", err)
	}
	return memberships, total, nil
}

func slugify(name string) string {
	slug := slugSeparatorRegexp.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
