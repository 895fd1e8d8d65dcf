package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"clubevents/internal/delivery/http/helpers"
	"clubevents/internal/delivery/http/middleware"
	"clubevents/internal/domain"
)

// GroupRequest is the request body for POST /groups and PATCH /groups/{groupID}.
type GroupRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	LogoURL     string `json:"logo_url"`
}

// Validate implements Validator.
func (r GroupRequest) Validate() []string {
	if r.Name == "" {
		return []string{"name is required"}
	}
	return nil
}

// JoinGroupRequest is the request body for POST /groups/{groupID}/members.
type JoinGroupRequest struct {
	Role string `json:"role"`
}

// UpdateMemberRoleRequest is the request body for PATCH /group-members/{memberID}.
type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

// Validate implements Validator.
func (r UpdateMemberRoleRequest) Validate() []string {
	if r.Role == "" {
		return []string{"role is required"}
	}
	return nil
}

// GroupListResponse is the data payload for GET /groups.
type GroupListResponse struct {
	Groups     []*domain.Group        `json:"groups"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// MemberListResponse is the data payload for GET /groups/{groupID}/members.
type MemberListResponse struct {
	Members    []*domain.GroupMember  `json:"members"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

type GroupController struct {
	Logger  *slog.Logger
	Service domain.GroupService
}

func NewGroupController(logger *slog.Logger, svc domain.GroupService) *GroupController {
	return &GroupController{Logger: logger, Service: svc}
}

// CreateGroup godoc
// @Summary Create a group
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param group body GroupRequest true "Group data"
// @Success 201 {object} helpers.APIResponse "data contains the created group"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /groups [post]
func (c *GroupController) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	group := &domain.Group{Name: req.Name, Slug: req.Slug, Description: req.Description, LogoURL: req.LogoURL}
	if err := c.Service.CreateGroup(r.Context(), group); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, group)
}

// ListGroups godoc
// @Summary List groups
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search in group names"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} helpers.APIResponse "data contains groups and pagination"
// @Router /groups [get]
func (c *GroupController) ListGroups(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	groups, total, err := c.Service.ListGroups(r.Context(), r.URL.Query().Get("search"), params)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, GroupListResponse{
		Groups:     groups,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// GetGroupBySlug godoc
// @Summary Get a group by slug
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Group slug"
// @Success 200 {object} helpers.APIResponse "data contains the group"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /groups/{slug} [get]
func (c *GroupController) GetGroupBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing slug")
		return
	}
	group, err := c.Service.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "group not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, group)
}

// UpdateGroup godoc
// @Summary Update a group
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param groupID path string true "Group ID"
// @Param group body GroupRequest true "Group data"
// @Success 200 {object} helpers.APIResponse "data contains the updated group"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /groups/{groupID} [patch]
func (c *GroupController) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")
	if groupID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing groupID")
		return
	}
	var req GroupRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	group := &domain.Group{ID: groupID, Name: req.Name, Slug: req.Slug, Description: req.Description, LogoURL: req.LogoURL}
	if err := c.Service.UpdateGroup(r.Context(), group); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "group not found")
		case errors.Is(err, domain.ErrInvalidInput):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, group)
}

// DeleteGroup godoc
// @Summary Delete a group
// @Description Deletes the group with its memberships and event assignments.
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param groupID path string true "Group ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /groups/{groupID} [delete]
func (c *GroupController) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")
	if groupID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing groupID")
		return
	}
	if err := c.Service.DeleteGroup(r.Context(), groupID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "group not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "group deleted"})
}

// JoinGroup godoc
// @Summary Join a group
// @Description Adds the authenticated user to the group. Role defaults to member; joining as leader requires a manager session.
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param groupID path string true "Group ID"
// @Param membership body JoinGroupRequest false "Membership role (spectator, member, leader)"
// @Success 201 {object} helpers.APIResponse "data contains the membership"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /groups/{groupID}/members [post]
func (c *GroupController) JoinGroup(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")
	if groupID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing groupID")
		return
	}
	var req JoinGroupRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	callerRole, _ := middleware.RoleFromContext(r.Context())

	memberRole := domain.MemberRoleMember
	if req.Role != "" {
		parsed, err := domain.ParseMemberRole(req.Role)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		memberRole = parsed
	}

	member, err := c.Service.Join(r.Context(), groupID, userID, memberRole, callerRole)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "group not found")
		case errors.Is(err, domain.ErrAlreadyMember):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
		case errors.Is(err, domain.ErrForbidden):
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "insufficient privileges")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, member)
}

// ListMembers godoc
// @Summary List group members
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param groupID path string true "Group ID"
// @Param role query string false "Filter by membership role"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} helpers.APIResponse "data contains members and pagination"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /groups/{groupID}/members [get]
func (c *GroupController) ListMembers(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")
	if groupID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing groupID")
		return
	}
	var roleFilter *domain.MemberRole
	if s := r.URL.Query().Get("role"); s != "" {
		role, err := domain.ParseMemberRole(s)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		roleFilter = &role
	}
	params := helpers.ParsePagination(r)
	members, total, err := c.Service.ListMembers(r.Context(), groupID, roleFilter, params)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MemberListResponse{
		Members:    members,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// MyMembershipListResponse is the data payload for GET /users/me/memberships.
type MyMembershipListResponse struct {
	Memberships []*domain.MembershipWithGroup `json:"memberships"`
	Pagination  helpers.PaginationMeta        `json:"pagination"`
}

// ListMyMemberships godoc
// @Summary List the caller's group memberships
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} helpers.APIResponse "data contains memberships and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /users/me/memberships [get]
func (c *GroupController) ListMyMemberships(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	params := helpers.ParsePagination(r)
	memberships, total, err := c.Service.ListUserMemberships(r.Context(), userID, params)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MyMembershipListResponse{
		Memberships: memberships,
		Pagination:  helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// LeaveGroup godoc
// @Summary Leave a group
// @Description Removes the caller's own membership in the group, addressed by group ID rather than membership ID.
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param groupID path string true "Group ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/me/memberships/{groupID} [delete]
func (c *GroupController) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")
	if groupID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing groupID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.Leave(r.Context(), groupID, userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "group not found")
		case errors.Is(err, domain.ErrNotMember):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "membership removed"})
}

// UpdateMemberRole godoc
// @Summary Change a membership role
// @Description Changes the role of one group membership. Users edit their own membership below leader; anything else requires a manager session.
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param memberID path string true "Membership ID"
// @Param role body UpdateMemberRoleRequest true "New membership role"
// @Success 200 {object} helpers.APIResponse "data contains the updated membership"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /group-members/{memberID} [patch]
func (c *GroupController) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("memberID")
	if memberID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing memberID")
		return
	}
	var req UpdateMemberRoleRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	role, err := domain.ParseMemberRole(req.Role)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	callerRole, _ := middleware.RoleFromContext(r.Context())

	member, err := c.Service.UpdateMemberRole(r.Context(), memberID, role, callerID, callerRole)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "membership not found")
		case errors.Is(err, domain.ErrForbidden):
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "insufficient privileges")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, member)
}

// RemoveMember godoc
// @Summary Remove a group membership
// @Description Users leave a group themselves; removing another member requires a manager session. Existing invitations are kept.
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param memberID path string true "Membership ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /group-members/{memberID} [delete]
func (c *GroupController) RemoveMember(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("memberID")
	if memberID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing memberID")
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	callerRole, _ := middleware.RoleFromContext(r.Context())

	if err := c.Service.RemoveMember(r.Context(), memberID, callerID, callerRole); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "membership not found")
		case errors.Is(err, domain.ErrForbidden):
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "insufficient privileges")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "membership removed"})
}
