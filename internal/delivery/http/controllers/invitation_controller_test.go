package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"clubevents/internal/delivery/http/helpers"
	"clubevents/internal/delivery/http/middleware"
	"clubevents/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInvitationService implements domain.InvitationService for handler tests.
type fakeInvitationService struct {
	generateResult *domain.DistributionResult
	generateErr    error
	resendErr      error

	tokenAccess   *domain.ReplyAccess
	tokenErr      error
	sessionAccess *domain.ReplyAccess
	sessionErr    error

	submitInv *domain.Invitation
	submitErr error

	listItems []*domain.InvitationWithUser
	listTotal int
	listStats *domain.InvitationStats
	listErr   error

	broadcastSent   int
	broadcastFailed []string
	broadcastErr    error

	lookupAccess *domain.ReplyAccess
	lookupErr    error

	mineItems []*domain.InvitationWithEvent
	mineTotal int
	mineErr   error

	lastTokenArg   string
	lastLookupArg  string
	lastSessionID  string
	lastMineUserID string
	lastSubmitArgs struct {
		reply       domain.Reply
		numFriends  int
		numCarSeats int
	}
}

func (f *fakeInvitationService) GenerateInvitations(ctx context.Context, eventID string) (*domain.DistributionResult, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return f.generateResult, nil
}

func (f *fakeInvitationService) ResendInvitation(ctx context.Context, invitationID string) error {
	return f.resendErr
}

func (f *fakeInvitationService) AuthorizeByToken(ctx context.Context, invitationID, token string) (*domain.ReplyAccess, error) {
	f.lastTokenArg = token
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return f.tokenAccess, nil
}

func (f *fakeInvitationService) LookupByToken(ctx context.Context, token string) (*domain.ReplyAccess, error) {
	f.lastLookupArg = token
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.lookupAccess, nil
}

func (f *fakeInvitationService) ListUserInvitations(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.InvitationWithEvent, int, error) {
	f.lastMineUserID = userID
	if f.mineErr != nil {
		return nil, 0, f.mineErr
	}
	return f.mineItems, f.mineTotal, nil
}

func (f *fakeInvitationService) AuthorizeBySession(ctx context.Context, invitationID, userID string, role domain.Role) (*domain.ReplyAccess, error) {
	f.lastSessionID = userID
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.sessionAccess, nil
}

func (f *fakeInvitationService) SubmitReply(ctx context.Context, access *domain.ReplyAccess, reply domain.Reply, numFriends, numCarSeats int) (*domain.Invitation, error) {
	f.lastSubmitArgs.reply = reply
	f.lastSubmitArgs.numFriends = numFriends
	f.lastSubmitArgs.numCarSeats = numCarSeats
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitInv, nil
}

func (f *fakeInvitationService) ListEventInvitations(ctx context.Context, eventID string, replyFilter *domain.Reply, params domain.PaginationParams) ([]*domain.InvitationWithUser, int, *domain.InvitationStats, error) {
	if f.listErr != nil {
		return nil, 0, nil, f.listErr
	}
	return f.listItems, f.listTotal, f.listStats, nil
}

func (f *fakeInvitationService) BroadcastUpdate(ctx context.Context, eventID, note string) (int, []string, error) {
	if f.broadcastErr != nil {
		return 0, nil, f.broadcastErr
	}
	return f.broadcastSent, f.broadcastFailed, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) helpers.APIResponse {
	t.Helper()
	var resp helpers.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestInvitationController_GenerateInvitations(t *testing.T) {
	tests := []struct {
		name         string
		eventID      string
		svc          *fakeInvitationService
		wantStatus   int
		wantBodyCode string
	}{
		{
			name:    "success",
			eventID: "ev-1",
			svc: &fakeInvitationService{
				generateResult: &domain.DistributionResult{Issued: 3, Sent: 2, Failed: []string{"x@example.com"}},
			},
			wantStatus: http.StatusOK,
		},
		{
			name:         "event not found",
			eventID:      "ev-missing",
			svc:          &fakeInvitationService{generateErr: domain.ErrNotFound},
			wantStatus:   http.StatusNotFound,
			wantBodyCode: helpers.ErrCodeNotFound,
		},
		{
			name:         "service error",
			eventID:      "ev-1",
			svc:          &fakeInvitationService{generateErr: assert.AnError},
			wantStatus:   http.StatusInternalServerError,
			wantBodyCode: helpers.ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewInvitationController(discardLogger(), tt.svc)
			req := httptest.NewRequest(http.MethodPost, "/events/"+tt.eventID+"/invitations", nil)
			req.SetPathValue("eventID", tt.eventID)
			rec := httptest.NewRecorder()
			c.GenerateInvitations(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeEnvelope(t, rec)
			if tt.wantBodyCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.wantBodyCode, resp.Error.Code)
				return
			}
			require.Nil(t, resp.Error)
			data, err := json.Marshal(resp.Data)
			require.NoError(t, err)
			var result domain.DistributionResult
			require.NoError(t, json.Unmarshal(data, &result))
			assert.Equal(t, 3, result.Issued)
			assert.Equal(t, 2, result.Sent)
			assert.Equal(t, []string{"x@example.com"}, result.Failed)
		})
	}
}

func TestInvitationController_GetInvitation(t *testing.T) {
	access := &domain.ReplyAccess{
		Invitation: &domain.Invitation{ID: "inv-1", EventID: "ev-1", UserID: "user-1"},
		Event:      &domain.Event{ID: "ev-1", Name: "Summer Hike"},
		CanEdit:    true,
	}

	t.Run("token in query authorizes anonymously", func(t *testing.T) {
		svc := &fakeInvitationService{tokenAccess: access}
		c := NewInvitationController(discardLogger(), svc)
		req := httptest.NewRequest(http.MethodGet, "/invitations/inv-1?token=abc123", nil)
		req.SetPathValue("invitationID", "inv-1")
		rec := httptest.NewRecorder()
		c.GetInvitation(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "abc123", svc.lastTokenArg)
	})

	t.Run("session authorizes without token", func(t *testing.T) {
		svc := &fakeInvitationService{sessionAccess: access}
		c := NewInvitationController(discardLogger(), svc)
		req := httptest.NewRequest(http.MethodGet, "/invitations/inv-1", nil)
		req.SetPathValue("invitationID", "inv-1")
		req = req.WithContext(middleware.SetUser(req.Context(), "user-1", domain.RoleUser))
		rec := httptest.NewRecorder()
		c.GetInvitation(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", svc.lastSessionID)
	})

	t.Run("neither token nor session is unauthorized", func(t *testing.T) {
		c := NewInvitationController(discardLogger(), &fakeInvitationService{})
		req := httptest.NewRequest(http.MethodGet, "/invitations/inv-1", nil)
		req.SetPathValue("invitationID", "inv-1")
		rec := httptest.NewRecorder()
		c.GetInvitation(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token is forbidden", func(t *testing.T) {
		svc := &fakeInvitationService{tokenErr: domain.ErrForbidden}
		c := NewInvitationController(discardLogger(), svc)
		req := httptest.NewRequest(http.MethodGet, "/invitations/inv-1?token=wrong", nil)
		req.SetPathValue("invitationID", "inv-1")
		rec := httptest.NewRecorder()
		c.GetInvitation(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		resp := decodeEnvelope(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, helpers.ErrCodeForbidden, resp.Error.Code)
	})

	t.Run("unknown invitation", func(t *testing.T) {
		svc := &fakeInvitationService{tokenErr: domain.ErrNotFound}
		c := NewInvitationController(discardLogger(), svc)
		req := httptest.NewRequest(http.MethodGet, "/invitations/inv-missing?token=abc", nil)
		req.SetPathValue("invitationID", "inv-missing")
		rec := httptest.NewRecorder()
		c.GetInvitation(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestInvitationController_LookupInvitation(t *testing.T) {
	access := &domain.ReplyAccess{
		Invitation: &domain.Invitation{ID: "inv-1", EventID: "ev-1", UserID: "user-1"},
		Event:      &domain.Event{ID: "ev-1", Name: "Summer Hike"},
		CanEdit:    true,
	}

	t.Run("bare token resolves the invitation", func(t *testing.T) {
		svc := &fakeInvitationService{lookupAccess: access}
		c := NewInvitationController(discardLogger(), svc)
		req := httptest.NewRequest(http.MethodGet, "/invitations/lookup?token=abc123", nil)
		rec := httptest.NewRecorder()
		c.LookupInvitation(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "abc123", svc.lastLookupArg)
		resp := decodeEnvelope(t, rec)
		require.Nil(t, resp.Error)
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var got domain.ReplyAccess
		require.NoError(t, json.Unmarshal(data, &got))
		require.NotNil(t, got.Invitation)
		assert.Equal(t, "inv-1", got.Invitation.ID)
	})

	t.Run("unknown token", func(t *testing.T) {
		svc := &fakeInvitationService{lookupErr: domain.ErrNotFound}
		c := NewInvitationController(discardLogger(), svc)
		req := httptest.NewRequest(http.MethodGet, "/invitations/lookup?token=wrong", nil)
		rec := httptest.NewRecorder()
		c.LookupInvitation(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		resp := decodeEnvelope(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, helpers.ErrCodeNotFound, resp.Error.Code)
	})
}

func TestInvitationController_ListMyInvitations(t *testing.T) {
	t.Run("returns the caller's invitations", func(t *testing.T) {
		svc := &fakeInvitationService{
			mineItems: []*domain.InvitationWithEvent{
				{Invitation: &domain.Invitation{ID: "inv-1", EventID: "ev-1", UserID: "user-1"}, EventName: "Summer Hike"},
			},
			mineTotal: 1,
		}
		c := NewInvitationController(discardLogger(), svc)
		req := httptest.NewRequest(http.MethodGet, "/users/me/invitations", nil)
		req = req.WithContext(middleware.SetUser(req.Context(), "user-1", domain.RoleUser))
		rec := httptest.NewRecorder()
		c.ListMyInvitations(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", svc.lastMineUserID)
		resp := decodeEnvelope(t, rec)
		require.Nil(t, resp.Error)
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var result MyInvitationListResponse
		require.NoError(t, json.Unmarshal(data, &result))
		require.Len(t, result.Invitations, 1)
		assert.Equal(t, "Summer Hike", result.Invitations[0].EventName)
		assert.Equal(t, 1, result.Pagination.Total)
	})

	t.Run("no session is unauthorized", func(t *testing.T) {
		c := NewInvitationController(discardLogger(), &fakeInvitationService{})
		req := httptest.NewRequest(http.MethodGet, "/users/me/invitations", nil)
		rec := httptest.NewRecorder()
		c.ListMyInvitations(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestInvitationController_SubmitReply(t *testing.T) {
	access := &domain.ReplyAccess{
		Invitation: &domain.Invitation{ID: "inv-1", EventID: "ev-1", UserID: "user-1"},
		Event:      &domain.Event{ID: "ev-1", Name: "Summer Hike"},
		CanEdit:    true,
	}

	newRequest := func(body any, token string) *http.Request {
		b, _ := json.Marshal(body)
		url := "/invitations/inv-1/reply"
		if token != "" {
			url += "?token=" + token
		}
		req := httptest.NewRequest(http.MethodPut, url, bytes.NewReader(b))
		req.SetPathValue("invitationID", "inv-1")
		return req
	}

	t.Run("accept via token", func(t *testing.T) {
		svc := &fakeInvitationService{
			tokenAccess: access,
			submitInv:   &domain.Invitation{ID: "inv-1", Reply: domain.ReplyAccepted, NumFriends: 2, NumCarSeats: 1},
		}
		c := NewInvitationController(discardLogger(), svc)
		rec := httptest.NewRecorder()
		c.SubmitReply(rec, newRequest(ReplyRequest{Reply: "accepted", NumFriends: 2, NumCarSeats: 1}, "abc"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.ReplyAccepted, svc.lastSubmitArgs.reply)
		assert.Equal(t, 2, svc.lastSubmitArgs.numFriends)
		assert.Equal(t, 1, svc.lastSubmitArgs.numCarSeats)
	})

	t.Run("unknown reply code is a bad request", func(t *testing.T) {
		c := NewInvitationController(discardLogger(), &fakeInvitationService{})
		rec := httptest.NewRecorder()
		c.SubmitReply(rec, newRequest(ReplyRequest{Reply: "maybe"}, "abc"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("deadline passed maps to deadline_passed", func(t *testing.T) {
		svc := &fakeInvitationService{tokenAccess: access, submitErr: domain.ErrDeadlinePassed}
		c := NewInvitationController(discardLogger(), svc)
		rec := httptest.NewRecorder()
		c.SubmitReply(rec, newRequest(ReplyRequest{Reply: "declined"}, "abc"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		resp := decodeEnvelope(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, helpers.ErrCodeDeadlinePassed, resp.Error.Code)
	})

	t.Run("counts on a decline map to bad_request", func(t *testing.T) {
		svc := &fakeInvitationService{tokenAccess: access, submitErr: domain.ErrInvalidInput}
		c := NewInvitationController(discardLogger(), svc)
		rec := httptest.NewRecorder()
		c.SubmitReply(rec, newRequest(ReplyRequest{Reply: "declined", NumFriends: 2}, "abc"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestInvitationController_Broadcast(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeInvitationService{broadcastSent: 5, broadcastFailed: []string{"x@example.com"}}
		c := NewInvitationController(discardLogger(), svc)
		b, _ := json.Marshal(BroadcastRequest{Note: "Start moved"})
		req := httptest.NewRequest(http.MethodPost, "/events/ev-1/update-broadcast", bytes.NewReader(b))
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.Broadcast(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeEnvelope(t, rec)
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var result BroadcastResponse
		require.NoError(t, json.Unmarshal(data, &result))
		assert.Equal(t, 5, result.Sent)
		assert.Equal(t, []string{"x@example.com"}, result.Failed)
	})

	t.Run("missing note", func(t *testing.T) {
		c := NewInvitationController(discardLogger(), &fakeInvitationService{})
		b, _ := json.Marshal(BroadcastRequest{})
		req := httptest.NewRequest(http.MethodPost, "/events/ev-1/update-broadcast", bytes.NewReader(b))
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.Broadcast(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestInvitationController_ResendInvitation(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := NewInvitationController(discardLogger(), &fakeInvitationService{})
		req := httptest.NewRequest(http.MethodPost, "/invitations/inv-1/resend", nil)
		req.SetPathValue("invitationID", "inv-1")
		rec := httptest.NewRecorder()
		c.ResendInvitation(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown invitation", func(t *testing.T) {
		c := NewInvitationController(discardLogger(), &fakeInvitationService{resendErr: domain.ErrNotFound})
		req := httptest.NewRequest(http.MethodPost, "/invitations/inv-missing/resend", nil)
		req.SetPathValue("invitationID", "inv-missing")
		rec := httptest.NewRecorder()
		c.ResendInvitation(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
