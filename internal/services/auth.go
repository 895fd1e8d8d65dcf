package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"clubevents/internal/domain"
)

const (
	minPasswordLen = 8

	// Recovery tokens (password reset, email change) expire after this window.
	recoveryTokenValidity = 2 * time.Hour
	recoveryTokenBytes    = 16
)

var (
	emailRegexp    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)
)

type authService struct {
	userRepo     domain.UserRepository
	hasher       domain.PasswordHasher
	sessions     domain.TokenIssuer
	regCodec     domain.RegistrationTokenCodec
	emailService domain.EmailService
	baseURL      string
	sessionTTL   time.Duration
}

// NewAuthService creates an AuthService with the given repository, crypto ports,
// and session config. baseURL is the public frontend origin used in email links.
func NewAuthService(userRepo domain.UserRepository, hasher domain.PasswordHasher, sessions domain.TokenIssuer, regCodec domain.RegistrationTokenCodec, emailService domain.EmailService, baseURL string, sessionTTL time.Duration) domain.AuthService {
	return &authService{
		userRepo:     userRepo,
		hasher:       hasher,
		sessions:     sessions,
		regCodec:     regCodec,
		emailService: emailService,
		baseURL:      strings.TrimRight(baseURL, "/"),
		sessionTTL:   sessionTTL,
	}
}

func (s *authService) Register(ctx context.Context, username, email, firstName, familyName string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	firstName = strings.TrimSpace(firstName)
	familyName = strings.TrimSpace(familyName)

	if !usernameRegexp.MatchString(username) {
		return fmt.Errorf("%w: invalid username", domain.ErrInvalidInput)
	}
	if !emailRegexp.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	if firstName == "" || familyName == "" {
		return fmt.Errorf("%w: first and family name are required", domain.ErrInvalidInput)
	}

	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return domain.ErrDuplicateUsername
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	token, err := s.regCodec.Encode(&domain.PendingRegistration{
		Username:    username,
		Email:       email,
		FirstName:   firstName,
		FamilyName:  familyName,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to sign registration token: %w", err)
	}

	data := &domain.RegistrationConfirmEmailData{
		Email:      email,
		FirstName:  firstName,
		ConfirmURL: s.link("/confirm-registration", token),
	}
	if err := s.emailService.SendRegistrationConfirm(ctx, data); err != nil {
		return fmt.Errorf("failed to send registration email: %w", err)
	}
	return nil
}

func (s *authService) PreviewRegistration(ctx context.Context, token string) (*domain.PendingRegistration, error) {
	reg, err := s.regCodec.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired registration token", domain.ErrInvalidInput)
	}
	return reg, nil
}

func (s *authService) ConfirmRegistration(ctx context.Context, token, password string) (*domain.User, error) {
	reg, err := s.regCodec.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired registration token", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := domain.NewUser(reg.Username, reg.Email, reg.FirstName, reg.FamilyName, now, now)
	user.PasswordSalt = salt
	user.PasswordHash = hash
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) || errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", nil, fmt.Errorf("invalid credentials")
	}
	if err := s.hasher.Compare(user.PasswordHash, user.PasswordSalt, password); err != nil {
		return "", nil, fmt.Errorf("invalid credentials")
	}
	token, err := s.sessions.Issue(user.ID, user.Role, s.sessionTTL)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, user, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, user.PasswordSalt, oldPassword); err != nil {
		return fmt.Errorf("invalid credentials")
	}
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}
	if err := s.rehash(user, newPassword); err != nil {
		return err
	}
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, username, email string) error {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	if !strings.EqualFold(user.Email, strings.TrimSpace(email)) {
		return domain.ErrUserNotFound
	}

	token, err := generateRecoveryToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	now := time.Now().UTC()
	user.PasswordResetToken = sql.NullString{String: token, Valid: true}
	user.PasswordResetRequested = sql.NullTime{Time: now, Valid: true}
	user.UpdatedAt = now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	data := &domain.PasswordResetEmailData{
		Email:      user.Email,
		Name:       user.FullName(),
		ConfirmURL: s.link("/reset-password", token),
	}
	if err := s.emailService.SendPasswordReset(ctx, data); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	user, err := s.userRepo.GetByPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("%w: invalid or expired reset token", domain.ErrInvalidInput)
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}
	if !user.PasswordResetRequested.Valid || time.Since(user.PasswordResetRequested.Time) > recoveryTokenValidity {
		return fmt.Errorf("%w: invalid or expired reset token", domain.ErrInvalidInput)
	}
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}
	if err := s.rehash(user, newPassword); err != nil {
		return err
	}
	user.PasswordResetToken = sql.NullString{}
	user.PasswordResetRequested = sql.NullTime{}
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *authService) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	newEmail = strings.TrimSpace(strings.ToLower(newEmail))
	if !emailRegexp.MatchString(newEmail) {
		return fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	if _, err := s.userRepo.GetByEmail(ctx, newEmail); err == nil {
		return domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	token, err := generateRecoveryToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	now := time.Now().UTC()
	user.EmailChangeRequest = sql.NullString{String: newEmail, Valid: true}
	user.EmailChangeToken = sql.NullString{String: token, Valid: true}
	user.EmailChangeRequested = sql.NullTime{Time: now, Valid: true}
	user.UpdatedAt = now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to store email change request: %w", err)
	}

	// The confirmation goes to the new address; it proves ownership of it.
	data := &domain.EmailChangeEmailData{
		Email:      newEmail,
		Name:       user.FullName(),
		ConfirmURL: s.link("/confirm-email-change", token),
	}
	if err := s.emailService.SendEmailChangeConfirm(ctx, data); err != nil {
		return fmt.Errorf("failed to send email change email: %w", err)
	}
	return nil
}

func (s *authService) ConfirmEmailChange(ctx context.Context, token string) error {
	user, err := s.userRepo.GetByEmailChangeToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("%w: invalid or expired email change token", domain.ErrInvalidInput)
		}
		return fmt.Errorf("failed to look up email change token: %w", err)
	}
	if !user.EmailChangeRequested.Valid || time.Since(user.EmailChangeRequested.Time) > recoveryTokenValidity {
		return fmt.Errorf("%w: invalid or expired email change token", domain.ErrInvalidInput)
	}
	if !user.EmailChangeRequest.Valid {
		return fmt.Errorf("%w: no email change outstanding", domain.ErrInvalidInput)
	}

	user.Email = user.EmailChangeRequest.String
	user.EmailChangeRequest = sql.NullString{}
	user.EmailChangeToken = sql.NullString{}
	user.EmailChangeRequested = sql.NullTime{}
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return err
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *authService) rehash(user *domain.User, password string) error {
	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordSalt = salt
	user.PasswordHash = hash
	return nil
}

func (s *authService) link(path, token string) string {
	return s.baseURL + path + "?token=" + url.QueryEscape(token)
}

func generateRecoveryToken() (string, error) {
	b := make([]byte, recoveryTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
