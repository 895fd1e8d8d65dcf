package domain

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for user operations.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already in use")
	ErrDuplicateUsername = errors.New("username already in use")
)

// Role is a user's global privilege level. The values are ordered: a larger
// role includes the privileges of the smaller ones.
type Role int

const (
	RoleUser Role = iota
	RoleManager
	RoleAdmin
)

var roleCodes = map[Role]string{
	RoleUser:    "user",
	RoleManager: "manager",
	RoleAdmin:   "admin",
}

// AtLeast reports whether r grants at least the privileges of other.
func (r Role) AtLeast(other Role) bool {
	return r >= other
}

// Code returns the wire code for the role ("user", "manager", "admin").
func (r Role) Code() string {
	return roleCodes[r]
}

// ParseRole parses a wire code into a Role.
func ParseRole(code string) (Role, error) {
	for r, c := range roleCodes {
		if c == code {
			return r, nil
		}
	}
	return RoleUser, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, code)
}

// MarshalJSON serializes the role as its wire code.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Code())
}

// UnmarshalJSON parses the role from its wire code.
func (r *Role) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	parsed, err := ParseRole(code)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User represents a registered user
// swagger:model User
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	FamilyName string `json:"family_name"`
	Role       Role   `json:"role"`

	PasswordSalt string `json:"-"`
	PasswordHash string `json:"-"`

	// Pending password-reset and email-change requests. Null when no
	// request is outstanding.
	PasswordResetToken     sql.NullString `json:"-"`
	PasswordResetRequested sql.NullTime   `json:"-"`
	EmailChangeRequest     sql.NullString `json:"-"`
	EmailChangeToken       sql.NullString `json:"-"`
	EmailChangeRequested   sql.NullTime   `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns "FirstName FamilyName" for display and email salutations.
func (u *User) FullName() string {
	return u.FirstName + " " + u.FamilyName
}

// NewUser returns a new User with the given fields. ID is typically set by the repository on create.
func NewUser(username, email, firstName, familyName string, createdAt, updatedAt time.Time) *User {
	return &User{
		Username:   username,
		Email:      email,
		FirstName:  firstName,
		FamilyName: familyName,
		Role:       RoleUser,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
}

// PendingRegistration is the payload of a registration confirmation link.
// It is carried in a signed token instead of a database row: the user record
// is only created once the link is confirmed.
type PendingRegistration struct {
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	FamilyName  string    `json:"family_name"`
	RequestedAt time.Time `json:"requested_at"`
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues session tokens for an authenticated user.
type TokenIssuer interface {
	Issue(userID string, role Role, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a session token and returns the authenticated user
// ID and role.
type TokenVerifier interface {
	Verify(token string) (userID string, role Role, err error)
}

// RegistrationTokenCodec signs and verifies the registration confirmation
// payload carried in email links.
type RegistrationTokenCodec interface {
	Encode(reg *PendingRegistration) (string, error)
	Decode(token string) (*PendingRegistration, error)
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByPasswordResetToken(ctx context.Context, token string) (*User, error)
	GetByEmailChangeToken(ctx context.Context, token string) (*User, error)
	// Update persists all mutable columns of the user row.
	Update(ctx context.Context, user *User) error
	UpdateRole(ctx context.Context, id string, role Role) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, roleFilter *Role, search string, params PaginationParams) ([]*User, int, error)
}

// AuthService defines registration, login, and credential recovery flows.
type AuthService interface {
	// Register validates the request and emails a signed confirmation link.
	// No user row is created until the link is confirmed.
	Register(ctx context.Context, username, email, firstName, familyName string) error
	// PreviewRegistration verifies the token and returns the pending payload
	// without creating anything. Backs the confirmation page.
	PreviewRegistration(ctx context.Context, token string) (*PendingRegistration, error)
	// ConfirmRegistration verifies the token, sets the password, and creates the user.
	ConfirmRegistration(ctx context.Context, token, password string) (*User, error)
	Login(ctx context.Context, username, password string) (token string, user *User, err error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, username, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	RequestEmailChange(ctx context.Context, userID, newEmail string) error
	ConfirmEmailChange(ctx context.Context, token string) error
}

// UserService defines profile and administrative user operations.
type UserService interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
	// Administrative operations; the caller's role is checked by the HTTP layer.
	List(ctx context.Context, roleFilter *Role, search string, params PaginationParams) ([]*User, int, error)
	UpdateRole(ctx context.Context, userID string, role Role) error
	Delete(ctx context.Context, userID string) error
}
