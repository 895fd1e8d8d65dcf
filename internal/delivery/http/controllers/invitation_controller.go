package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"clubevents/internal/delivery/http/helpers"
	"clubevents/internal/delivery/http/middleware"
	"clubevents/internal/domain"
)

// ReplyRequest is the request body for PUT /invitations/{invitationID}/reply.
type ReplyRequest struct {
	Reply       string `json:"reply"`
	NumFriends  int    `json:"num_friends"`
	NumCarSeats int    `json:"num_car_seats"`
}

// Validate implements Validator.
func (r ReplyRequest) Validate() []string {
	if r.Reply == "" {
		return []string{"reply is required"}
	}
	return nil
}

// BroadcastRequest is the request body for POST /events/{eventID}/update-broadcast.
type BroadcastRequest struct {
	Note string `json:"note"`
}

// Validate implements Validator.
func (r BroadcastRequest) Validate() []string {
	if r.Note == "" {
		return []string{"note is required"}
	}
	return nil
}

// BroadcastResponse is the data payload for POST /events/{eventID}/update-broadcast.
type BroadcastResponse struct {
	Sent   int      `json:"sent"`
	Failed []string `json:"failed"`
}

// InvitationListResponse is the data payload for GET /events/{eventID}/invitations.
type InvitationListResponse struct {
	Invitations []*domain.InvitationWithUser `json:"invitations"`
	Stats       *domain.InvitationStats      `json:"stats"`
	Pagination  helpers.PaginationMeta       `json:"pagination"`
}

type InvitationController struct {
	Logger  *slog.Logger
	Service domain.InvitationService
}

func NewInvitationController(logger *slog.Logger, svc domain.InvitationService) *InvitationController {
	return &InvitationController{Logger: logger, Service: svc}
}

// GenerateInvitations godoc
// @Summary Generate and send invitations
// @Description Switches the event on for distribution, creates the missing invitations, and mails each one. Safe to repeat: existing invitations are never duplicated or re-sent.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the distribution result"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/invitations [post]
func (c *InvitationController) GenerateInvitations(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	result, err := c.Service.GenerateInvitations(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// ListInvitations godoc
// @Summary List event invitations with reply stats
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param reply query string false "Filter by reply (no_reply, accepted, declined)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} helpers.APIResponse "data contains invitations, stats, and pagination"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/invitations [get]
func (c *InvitationController) ListInvitations(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var replyFilter *domain.Reply
	if s := r.URL.Query().Get("reply"); s != "" {
		reply, err := domain.ParseReply(s)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		replyFilter = &reply
	}
	params := helpers.ParsePagination(r)
	invitations, total, stats, err := c.Service.ListEventInvitations(r.Context(), eventID, replyFilter, params)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, InvitationListResponse{
		Invitations: invitations,
		Stats:       stats,
		Pagination:  helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// Broadcast godoc
// @Summary Send an update note to all invited users
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param broadcast body BroadcastRequest true "Update note"
// @Success 200 {object} helpers.APIResponse "data contains sent count and failed addresses"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/update-broadcast [post]
func (c *InvitationController) Broadcast(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req BroadcastRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	sent, failed, err := c.Service.BroadcastUpdate(r.Context(), eventID, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
		case errors.Is(err, domain.ErrInvalidInput):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	if failed == nil {
		failed = []string{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, BroadcastResponse{Sent: sent, Failed: failed})
}

// authorize resolves reply access from the token query parameter or, when no
// token is given, from the authenticated session.
func (c *InvitationController) authorize(w http.ResponseWriter, r *http.Request, invitationID string) (*domain.ReplyAccess, bool) {
	if token := r.URL.Query().Get("token"); token != "" {
		access, err := c.Service.AuthorizeByToken(r.Context(), invitationID, token)
		if err != nil {
			c.writeAuthorizeError(w, r, err)
			return nil, false
		}
		return access, true
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "token or login required")
		return nil, false
	}
	role, _ := middleware.RoleFromContext(r.Context())
	access, err := c.Service.AuthorizeBySession(r.Context(), invitationID, userID, role)
	if err != nil {
		c.writeAuthorizeError(w, r, err)
		return nil, false
	}
	return access, true
}

func (c *InvitationController) writeAuthorizeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invitation not found")
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "not allowed for this invitation")
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}

// GetInvitation godoc
// @Summary View an invitation
// @Description Returns the invitation with its event. Accessible anonymously with the emailed token, or with a session belonging to the invitee or a manager.
// @Tags invitations
// @Produce json
// @Param invitationID path string true "Invitation ID"
// @Param token query string false "Invitation token from the email link"
// @Success 200 {object} helpers.APIResponse "data contains the reply access descriptor"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /invitations/{invitationID} [get]
func (c *InvitationController) GetInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID := r.PathValue("invitationID")
	if invitationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing invitationID")
		return
	}
	access, ok := c.authorize(w, r, invitationID)
	if !ok {
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, access)
}

// LookupInvitation godoc
// @Summary Resolve an invitation from its bare token
// @Description Looks up the invitation and its event using only the emailed token, for reply links that do not carry the invitation ID.
// @Tags invitations
// @Produce json
// @Param token query string true "Invitation token from the email link"
// @Success 200 {object} helpers.APIResponse "data contains the reply access descriptor"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /invitations/lookup [get]
func (c *InvitationController) LookupInvitation(w http.ResponseWriter, r *http.Request) {
	access, err := c.Service.LookupByToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invitation not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, access)
}

// MyInvitationListResponse is the data payload for GET /users/me/invitations.
type MyInvitationListResponse struct {
	Invitations []*domain.InvitationWithEvent `json:"invitations"`
	Pagination  helpers.PaginationMeta        `json:"pagination"`
}

// ListMyInvitations godoc
// @Summary List the caller's invitations
// @Description Returns the authenticated user's invitations with event context, soonest event first.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} helpers.APIResponse "data contains invitations and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /users/me/invitations [get]
func (c *InvitationController) ListMyInvitations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "login required")
		return
	}
	params := helpers.ParsePagination(r)
	invitations, total, err := c.Service.ListUserInvitations(r.Context(), userID, params)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MyInvitationListResponse{
		Invitations: invitations,
		Pagination:  helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// SubmitReply godoc
// @Summary Submit or change a reply
// @Description Persists the accept/decline reply with the companion and car seat counts. Authorized like GET /invitations/{invitationID}. Editable until the event deadline.
// @Tags invitations
// @Accept json
// @Produce json
// @Param invitationID path string true "Invitation ID"
// @Param token query string false "Invitation token from the email link"
// @Param reply body ReplyRequest true "Reply data"
// @Success 200 {object} helpers.APIResponse "data contains the updated invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden or deadline_passed"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /invitations/{invitationID}/reply [put]
func (c *InvitationController) SubmitReply(w http.ResponseWriter, r *http.Request) {
	invitationID := r.PathValue("invitationID")
	if invitationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing invitationID")
		return
	}
	var req ReplyRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reply, err := domain.ParseReply(req.Reply)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	access, ok := c.authorize(w, r, invitationID)
	if !ok {
		return
	}
	inv, err := c.Service.SubmitReply(r.Context(), access, reply, req.NumFriends, req.NumCarSeats)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDeadlinePassed):
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeDeadlinePassed, err.Error())
		case errors.Is(err, domain.ErrInvalidInput):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// ResendInvitation godoc
// @Summary Resend an invitation email
// @Description Re-delivers the existing invitation with its original token. Used after a failed delivery; never creates a new invitation.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param invitationID path string true "Invitation ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /invitations/{invitationID}/resend [post]
func (c *InvitationController) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID := r.PathValue("invitationID")
	if invitationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing invitationID")
		return
	}
	if err := c.Service.ResendInvitation(r.Context(), invitationID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invitation not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "invitation re-sent"})
}
