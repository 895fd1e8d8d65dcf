package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"clubevents/internal/delivery/http/helpers"
	"clubevents/internal/delivery/http/middleware"
	"clubevents/internal/domain"
)

// RegisterRequest is the request body for POST /auth/register.
type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	FamilyName string `json:"family_name"`
}

// Validate implements Validator. Returns error messages for required fields.
func (r RegisterRequest) Validate() []string {
	var errs []string
	if r.Username == "" {
		errs = append(errs, "username is required")
	}
	if r.Email == "" {
		errs = append(errs, "email is required")
	}
	if r.FirstName == "" {
		errs = append(errs, "first_name is required")
	}
	if r.FamilyName == "" {
		errs = append(errs, "family_name is required")
	}
	return errs
}

// ConfirmRegistrationRequest is the request body for POST /auth/confirm.
type ConfirmRegistrationRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Validate implements Validator.
func (r ConfirmRegistrationRequest) Validate() []string {
	var errs []string
	if r.Token == "" {
		errs = append(errs, "token is required")
	}
	if r.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate implements Validator.
func (r LoginRequest) Validate() []string {
	var errs []string
	if r.Username == "" {
		errs = append(errs, "username is required")
	}
	if r.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

// LoginResponse is the data payload for a successful login.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// ChangePasswordRequest is the request body for POST /auth/password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Validate implements Validator.
func (r ChangePasswordRequest) Validate() []string {
	var errs []string
	if r.OldPassword == "" {
		errs = append(errs, "old_password is required")
	}
	if r.NewPassword == "" {
		errs = append(errs, "new_password is required")
	}
	return errs
}

// PasswordResetRequest is the request body for POST /auth/password-reset.
type PasswordResetRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Validate implements Validator.
func (r PasswordResetRequest) Validate() []string {
	var errs []string
	if r.Username == "" {
		errs = append(errs, "username is required")
	}
	if r.Email == "" {
		errs = append(errs, "email is required")
	}
	return errs
}

// ConfirmPasswordResetRequest is the request body for POST /auth/password-reset/confirm.
type ConfirmPasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Validate implements Validator.
func (r ConfirmPasswordResetRequest) Validate() []string {
	var errs []string
	if r.Token == "" {
		errs = append(errs, "token is required")
	}
	if r.NewPassword == "" {
		errs = append(errs, "new_password is required")
	}
	return errs
}

// EmailChangeRequest is the request body for POST /auth/email-change.
type EmailChangeRequest struct {
	NewEmail string `json:"new_email"`
}

// Validate implements Validator.
func (r EmailChangeRequest) Validate() []string {
	if r.NewEmail == "" {
		return []string{"new_email is required"}
	}
	return nil
}

// ConfirmEmailChangeRequest is the request body for POST /auth/email-change/confirm.
type ConfirmEmailChangeRequest struct {
	Token string `json:"token"`
}

// Validate implements Validator.
func (r ConfirmEmailChangeRequest) Validate() []string {
	if r.Token == "" {
		return []string{"token is required"}
	}
	return nil
}

type AuthController struct {
	Logger  *slog.Logger
	Service domain.AuthService
}

func NewAuthController(logger *slog.Logger, svc domain.AuthService) *AuthController {
	return &AuthController{Logger: logger, Service: svc}
}

// Register godoc
// @Summary Request account registration
// @Description Validates the registration data and emails a signed confirmation link. No account exists until the link is confirmed.
// @Tags auth
// @Accept json
// @Produce json
// @Param registration body RegisterRequest true "Registration data"
// @Success 202 {object} helpers.APIResponse "confirmation email sent"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/register [post]
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.Register(r.Context(), req.Username, req.Email, req.FirstName, req.FamilyName); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateUsername), errors.Is(err, domain.ErrDuplicateEmail):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidInput):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, map[string]string{"status": "confirmation email sent"})
}

// PreviewRegistration godoc
// @Summary Inspect a registration confirmation link
// @Description Verifies the signed token from the confirmation email and returns the pending registration data.
// @Tags auth
// @Produce json
// @Param token query string true "Registration token"
// @Success 200 {object} helpers.APIResponse "data contains the pending registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /auth/confirm [get]
func (c *AuthController) PreviewRegistration(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing token")
		return
	}
	reg, err := c.Service.PreviewRegistration(r.Context(), token)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid or expired registration token")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// ConfirmRegistration godoc
// @Summary Complete account registration
// @Description Verifies the signed token, sets the chosen password, and creates the account.
// @Tags auth
// @Accept json
// @Produce json
// @Param confirmation body ConfirmRegistrationRequest true "Token and chosen password"
// @Success 201 {object} helpers.APIResponse "data contains the created user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/confirm [post]
func (c *AuthController) ConfirmRegistration(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRegistrationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.ConfirmRegistration(r.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateUsername), errors.Is(err, domain.ErrDuplicateEmail):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidInput):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, user)
}

// Login godoc
// @Summary Log in
// @Description Verifies the credentials and returns a bearer token and the user profile.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Username and password"
// @Success 200 {object} helpers.APIResponse "data contains token and user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	token, user, err := c.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "invalid credentials")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// ChangePassword godoc
// @Summary Change the own password
// @Description Verifies the old password and replaces it with the new one.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param passwords body ChangePasswordRequest true "Old and new password"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /auth/password [post]
func (c *AuthController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "invalid credentials")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// RequestPasswordReset godoc
// @Summary Request a password reset link
// @Description Stores a reset token for the matching account and emails the link. Username and email must belong to the same account.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Username and email"
// @Success 202 {object} helpers.APIResponse "reset email sent"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/password-reset [post]
func (c *AuthController) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.RequestPasswordReset(r.Context(), req.Username, req.Email); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "no matching account")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, map[string]string{"status": "reset email sent"})
}

// ConfirmPasswordReset godoc
// @Summary Complete a password reset
// @Description Verifies the reset token and replaces the password.
// @Tags auth
// @Accept json
// @Produce json
// @Param confirmation body ConfirmPasswordResetRequest true "Token and new password"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/password-reset/confirm [post]
func (c *AuthController) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPasswordResetRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "password reset"})
}

// RequestEmailChange godoc
// @Summary Request an email address change
// @Description Stores the requested address and mails a confirmation link to it. The account keeps its old address until confirmed.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EmailChangeRequest true "New email address"
// @Success 202 {object} helpers.APIResponse "confirmation email sent"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /auth/email-change [post]
func (c *AuthController) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	var req EmailChangeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.RequestEmailChange(r.Context(), userID, req.NewEmail); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidInput):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, map[string]string{"status": "confirmation email sent"})
}

// ConfirmEmailChange godoc
// @Summary Complete an email address change
// @Description Verifies the token from the confirmation email and swaps the account's address.
// @Tags auth
// @Accept json
// @Produce json
// @Param confirmation body ConfirmEmailChangeRequest true "Email change token"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /auth/email-change/confirm [post]
func (c *AuthController) ConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	var req ConfirmEmailChangeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.ConfirmEmailChange(r.Context(), req.Token); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidInput):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "email changed"})
}
