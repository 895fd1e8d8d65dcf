package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"clubevents/internal/delivery/http/controllers"
	"clubevents/internal/delivery/http/middleware"
	"clubevents/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	logger *slog.Logger,
	verifier domain.TokenVerifier,
	authController *controllers.AuthController,
	userController *controllers.UserController,
	groupController *controllers.GroupController,
	eventController *controllers.EventController,
	invitationController *controllers.InvitationController,
) *http.ServeMux {
	mux := http.NewServeMux()

	auth := middleware.RequireAuth(verifier, logger)
	manager := func(h http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireRole(domain.RoleManager)(h))
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireRole(domain.RoleAdmin)(h))
	}
	optional := middleware.OptionalAuth(verifier)

	// Auth
	mux.HandleFunc("POST /auth/register", authController.Register)
	mux.HandleFunc("GET /auth/confirm", authController.PreviewRegistration)
	mux.HandleFunc("POST /auth/confirm", authController.ConfirmRegistration)
	mux.HandleFunc("POST /auth/login", authController.Login)
	mux.HandleFunc("POST /auth/password", auth(authController.ChangePassword))
	mux.HandleFunc("POST /auth/password-reset", authController.RequestPasswordReset)
	mux.HandleFunc("POST /auth/password-reset/confirm", authController.ConfirmPasswordReset)
	mux.HandleFunc("POST /auth/email-change", auth(authController.RequestEmailChange))
	mux.HandleFunc("POST /auth/email-change/confirm", authController.ConfirmEmailChange)

	// Users
	mux.HandleFunc("GET /users/me", auth(userController.GetMe))
	mux.HandleFunc("PATCH /users/me", auth(userController.UpdateMe))
	mux.HandleFunc("GET /users/me/memberships", auth(groupController.ListMyMemberships))
	mux.HandleFunc("DELETE /users/me/memberships/{groupID}", auth(groupController.LeaveGroup))
	mux.HandleFunc("GET /users/me/events", auth(eventController.ListMyEvents))
	mux.HandleFunc("GET /users/me/invitations", auth(invitationController.ListMyInvitations))
	mux.HandleFunc("GET /users", admin(userController.ListUsers))
	mux.HandleFunc("POST /users", admin(userController.CreateUser))
	mux.HandleFunc("PATCH /users/{userID}/role", admin(userController.UpdateUserRole))
	mux.HandleFunc("DELETE /users/{userID}", admin(userController.DeleteUser))

	// Groups and memberships
	mux.HandleFunc("GET /groups", auth(groupController.ListGroups))
	mux.HandleFunc("POST /groups", admin(groupController.CreateGroup))
	mux.HandleFunc("GET /groups/{slug}", auth(groupController.GetGroupBySlug))
	mux.HandleFunc("PATCH /groups/{groupID}", manager(groupController.UpdateGroup))
	mux.HandleFunc("DELETE /groups/{groupID}", admin(groupController.DeleteGroup))
	mux.HandleFunc("POST /groups/{groupID}/members", auth(groupController.JoinGroup))
	mux.HandleFunc("GET /groups/{groupID}/members", manager(groupController.ListMembers))
	mux.HandleFunc("PATCH /group-members/{memberID}", auth(groupController.UpdateMemberRole))
	mux.HandleFunc("DELETE /group-members/{memberID}", auth(groupController.RemoveMember))

	// Events
	mux.HandleFunc("GET /events", auth(eventController.ListEvents))
	mux.HandleFunc("POST /events", manager(eventController.CreateEvent))
	mux.HandleFunc("GET /events/{eventID}", auth(eventController.GetEventByID))
	mux.HandleFunc("PATCH /events/{eventID}", manager(eventController.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", manager(eventController.DeleteEvent))
	mux.HandleFunc("POST /events/{eventID}/copy", manager(eventController.CopyEvent))
	mux.HandleFunc("GET /events/{eventID}/audience", manager(eventController.GetAudience))

	// Invitations
	mux.HandleFunc("POST /events/{eventID}/invitations", manager(invitationController.GenerateInvitations))
	mux.HandleFunc("GET /events/{eventID}/invitations", manager(invitationController.ListInvitations))
	mux.HandleFunc("POST /events/{eventID}/update-broadcast", manager(invitationController.Broadcast))
	mux.HandleFunc("GET /invitations/lookup", invitationController.LookupInvitation)
	mux.HandleFunc("GET /invitations/{invitationID}", optional(invitationController.GetInvitation))
	mux.HandleFunc("PUT /invitations/{invitationID}/reply", optional(invitationController.SubmitReply))
	mux.HandleFunc("POST /invitations/{invitationID}/resend", manager(invitationController.ResendInvitation))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
