package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for group membership operations.
var (
	ErrAlreadyMember = errors.New("already a group member")
	ErrNotMember     = errors.New("not a group member")
)

// MemberRole is a user's standing within one group. The values are ordered.
type MemberRole int

const (
	MemberRoleSpectator MemberRole = iota
	MemberRoleMember
	MemberRoleLeader
)

var memberRoleCodes = map[MemberRole]string{
	MemberRoleSpectator: "spectator",
	MemberRoleMember:    "member",
	MemberRoleLeader:    "leader",
}

// Code returns the wire code for the membership role.
func (r MemberRole) Code() string {
	return memberRoleCodes[r]
}

// ParseMemberRole parses a wire code into a MemberRole.
func ParseMemberRole(code string) (MemberRole, error) {
	for r, c := range memberRoleCodes {
		if c == code {
			return r, nil
		}
	}
	return MemberRoleSpectator, fmt.Errorf("%w: unknown member role %q", ErrInvalidInput, code)
}

// MarshalJSON serializes the membership role as its wire code.
func (r MemberRole) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Code())
}

// UnmarshalJSON parses the membership role from its wire code.
func (r *MemberRole) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	parsed, err := ParseMemberRole(code)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Group represents a named collection of users that events are addressed to.
// swagger:model Group
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	LogoURL     string    `json:"logo_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewGroup returns a new Group with the given fields. ID is set by the
// repository on create.
func NewGroup(name, slug, description, logoURL string, now time.Time) *Group {
	return &Group{
		Name:        name,
		Slug:        slug,
		Description: description,
		LogoURL:     logoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// GroupMember is the membership edge between one user and one group.
// At most one membership exists per (user, group).
// swagger:model GroupMember
type GroupMember struct {
	ID       string     `json:"id"`
	GroupID  string     `json:"group_id"`
	UserID   string     `json:"user_id"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`

	// Denormalized user fields for listing; populated by join queries only.
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

// MembershipWithGroup bundles a membership with its group's name and slug for
// the member dashboard.
type MembershipWithGroup struct {
	Membership *GroupMember `json:"membership"`
	GroupName  string       `json:"group_name"`
	GroupSlug  string       `json:"group_slug"`
}

// GroupRepository defines the interface for group storage
type GroupRepository interface {
	Create(ctx context.Context, group *Group) error
	GetByID(ctx context.Context, id string) (*Group, error)
	GetBySlug(ctx context.Context, slug string) (*Group, error)
	Update(ctx context.Context, group *Group) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, search string, params PaginationParams) ([]*Group, int, error)
}

// GroupMemberRepository defines storage operations for group memberships.
type GroupMemberRepository interface {
	Add(ctx context.Context, member *GroupMember) error
	GetByID(ctx context.Context, id string) (*GroupMember, error)
	GetByGroupAndUser(ctx context.Context, groupID, userID string) (*GroupMember, error)
	UpdateRole(ctx context.Context, id string, role MemberRole) error
	Remove(ctx context.Context, id string) error
	ListByGroupID(ctx context.Context, groupID string, roleFilter *MemberRole, params PaginationParams) ([]*GroupMember, int, error)
	// ListByUserID returns the user's memberships with group context, ordered
	// by group name.
	ListByUserID(ctx context.Context, userID string, params PaginationParams) ([]*MembershipWithGroup, int, error)
}

// GroupService defines the business logic for groups and memberships.
type GroupService interface {
	CreateGroup(ctx context.Context, group *Group) error
	GetBySlug(ctx context.Context, slug string) (*Group, error)
	UpdateGroup(ctx context.Context, group *Group) error
	DeleteGroup(ctx context.Context, id string) error
	ListGroups(ctx context.Context, search string, params PaginationParams) ([]*Group, int, error)

	// Join adds the caller to the group. Promoting oneself to leader
	// requires a global role of manager or above.
	Join(ctx context.Context, groupID, userID string, role MemberRole, callerRole Role) (*GroupMember, error)
	// UpdateMemberRole changes a membership role. Editing another user's
	// membership requires manager or above.
	UpdateMemberRole(ctx context.Context, memberID string, role MemberRole, callerID string, callerRole Role) (*GroupMember, error)
	// RemoveMember deletes a membership. Removing another user requires
	// manager or above.
	RemoveMember(ctx context.Context, memberID, callerID string, callerRole Role) error
	// Leave removes the caller's own membership in the group. Returns
	// ErrNotMember when the caller is not a member.
	Leave(ctx context.Context, groupID, userID string) error
	ListMembers(ctx context.Context, groupID string, roleFilter *MemberRole, params PaginationParams) ([]*GroupMember, int, error)
	// ListUserMemberships returns the caller's own memberships for the
	// member dashboard.
	ListUserMemberships(ctx context.Context, userID string, params PaginationParams) ([]*MembershipWithGroup, int, error)
}
