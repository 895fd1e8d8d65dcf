package domain

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for invitation operations.
var (
	// ErrDeadlinePassed is returned when a reply is submitted after the
	// event's deadline. The invitation stays readable.
	ErrDeadlinePassed = errors.New("reply deadline has passed")

	// ErrDuplicateInvitation is returned when an invitation already exists
	// for the (event, user) pair.
	ErrDuplicateInvitation = errors.New("invitation already exists")
)

// Reply is the tri-state answer on an invitation.
type Reply int

const (
	ReplyNone Reply = iota
	ReplyAccepted
	ReplyDeclined
)

var replyCodes = map[Reply]string{
	ReplyNone:     "no_reply",
	ReplyAccepted: "accepted",
	ReplyDeclined: "declined",
}

// Code returns the wire code for the reply state.
func (r Reply) Code() string {
	return replyCodes[r]
}

// ParseReply parses a wire code into a Reply.
func ParseReply(code string) (Reply, error) {
	for r, c := range replyCodes {
		if c == code {
			return r, nil
		}
	}
	return ReplyNone, fmt.Errorf("%w: unknown reply %q", ErrInvalidInput, code)
}

// MarshalJSON serializes the reply as its wire code.
func (r Reply) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Code())
}

// UnmarshalJSON parses the reply from its wire code.
func (r *Reply) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	parsed, err := ParseReply(code)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Invitation tracks, per (event, user), notification delivery and the user's
// accept/decline reply. At most one invitation exists per pair.
// swagger:model Invitation
type Invitation struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`

	// Token grants capability-scoped edit access to this one invitation
	// without a login session. 32 lowercase hex characters.
	Token string `json:"-"`

	// Delivery timestamps, both UTC. Attempt is set right before handing
	// the message to the mail transport; success only if the transport
	// reported success.
	SendEmailAttemptUTC sql.NullTime `json:"send_email_attempt_utc" swaggertype:"string"`
	SendEmailSuccessUTC sql.NullTime `json:"send_email_success_utc" swaggertype:"string"`

	Reply       Reply `json:"reply"`
	NumFriends  int   `json:"num_friends"`
	NumCarSeats int   `json:"num_car_seats"`
}

// InvitationWithUser bundles an invitation with the invited user's names for
// the manager reply listing.
type InvitationWithUser struct {
	Invitation *Invitation `json:"invitation"`
	Username   string      `json:"username"`
	FirstName  string      `json:"first_name"`
	FamilyName string      `json:"family_name"`
	Email      string      `json:"email"`
}

// InvitationWithEvent bundles an invitation with its event's key dates for
// the member dashboard.
type InvitationWithEvent struct {
	Invitation  *Invitation `json:"invitation"`
	EventName   string      `json:"event_name"`
	StartUTC    time.Time   `json:"start_utc"`
	DeadlineUTC time.Time   `json:"deadline_utc"`
}

// InvitationStats aggregates replies for one event.
// swagger:model InvitationStats
type InvitationStats struct {
	Accepted      int `json:"accepted"`
	TotalFriends  int `json:"total_friends"`
	TotalCarSeats int `json:"total_car_seats"`
}

// EligiblePair is a (user, event) pair that should receive an invitation but
// does not yet have one. The extra fields feed the invitation email.
type EligiblePair struct {
	UserID    string
	EventID   string
	Email     string
	FirstName string
	EventName string
}

// DistributionResult summarizes one invitation generation run.
// swagger:model DistributionResult
type DistributionResult struct {
	// Issued is the number of invitation rows created in this run.
	Issued int `json:"issued"`
	// Sent is the number of invitation emails delivered successfully.
	Sent int `json:"sent"`
	// Failed lists the email addresses whose delivery attempt failed.
	// The invitation rows persist for manual resend.
	Failed []string `json:"failed"`
}

// ReplyAccess is the capability descriptor for one reply interaction,
// resolved from either a token or an authenticated session before the
// workflow runs.
type ReplyAccess struct {
	Invitation *Invitation `json:"invitation"`
	Event      *Event      `json:"event"`
	// ActorUserID is empty for anonymous token access.
	ActorUserID string `json:"actor_user_id,omitempty"`
	// EditingOther is true when a manager edits on behalf of another user.
	EditingOther bool `json:"editing_other"`
	// CanEdit is false once the event deadline has passed; the invitation
	// is then read-only.
	CanEdit bool `json:"can_edit"`
}

// InvitationRepository defines storage operations for invitations.
type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id string) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*Invitation, error)
	// UpdateReply persists the reply state and counts.
	UpdateReply(ctx context.Context, id string, reply Reply, numFriends, numCarSeats int) error
	MarkSendAttempt(ctx context.Context, id string, at time.Time) error
	MarkSendSuccess(ctx context.Context, id string, at time.Time) error
	// ListMissing computes the (user, event) pairs that are eligible for an
	// invitation but have none yet. eventID narrows the run to one event;
	// empty resolves across all events marked for distribution.
	ListMissing(ctx context.Context, eventID string, now time.Time) ([]*EligiblePair, error)
	ListByEventID(ctx context.Context, eventID string, replyFilter *Reply, params PaginationParams) ([]*InvitationWithUser, int, error)
	// ListByUserID returns the user's invitations with event context, soonest
	// event first.
	ListByUserID(ctx context.Context, userID string, params PaginationParams) ([]*InvitationWithEvent, int, error)
	StatsByEventID(ctx context.Context, eventID string) (*InvitationStats, error)
}

// InvitationService defines the invitation lifecycle: generation and
// delivery, reply workflow, and manager views.
type InvitationService interface {
	// GenerateInvitations marks the event for distribution (one-way),
	// resolves missing invitations, and issues + mails each one
	// independently. A failed delivery never aborts the rest.
	GenerateInvitations(ctx context.Context, eventID string) (*DistributionResult, error)
	// ResendInvitation re-delivers an existing invitation, reusing its row
	// and token. It never regenerates either.
	ResendInvitation(ctx context.Context, invitationID string) error

	// AuthorizeByToken resolves anonymous access: the token must match the
	// given invitation exactly.
	AuthorizeByToken(ctx context.Context, invitationID, token string) (*ReplyAccess, error)
	// LookupByToken resolves anonymous access from the bare token, for reply
	// links that do not carry the invitation ID.
	LookupByToken(ctx context.Context, token string) (*ReplyAccess, error)
	// AuthorizeBySession resolves authenticated access: the session user
	// must own the invitation, or hold manager or above.
	AuthorizeBySession(ctx context.Context, invitationID, userID string, role Role) (*ReplyAccess, error)
	// SubmitReply validates and persists the reply under the given access
	// descriptor. Replies may flip until the deadline.
	SubmitReply(ctx context.Context, access *ReplyAccess, reply Reply, numFriends, numCarSeats int) (*Invitation, error)

	ListEventInvitations(ctx context.Context, eventID string, replyFilter *Reply, params PaginationParams) ([]*InvitationWithUser, int, *InvitationStats, error)
	// ListUserInvitations returns the caller's own invitations for the
	// member dashboard.
	ListUserInvitations(ctx context.Context, userID string, params PaginationParams) ([]*InvitationWithEvent, int, error)
	// BroadcastUpdate mails a note to every invited user of the event.
	BroadcastUpdate(ctx context.Context, eventID, note string) (sent int, failed []string, err error)
}
