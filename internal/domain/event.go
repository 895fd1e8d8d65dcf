package domain

import (
	"context"
	"time"
)

// Event represents a club event with a time window, a reply deadline, and the
// set of groups it is addressed to.
// swagger:model Event
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Equipment   string    `json:"equipment"`
	Cost        int       `json:"cost"`
	StartUTC    time.Time `json:"start_utc"`
	EndUTC      time.Time `json:"end_utc"`
	DeadlineUTC time.Time `json:"deadline_utc"`

	// SendInvitations marks the event active for invitation distribution.
	// The transition is one-way; there is no un-sending.
	SendInvitations bool `json:"send_invitations"`

	// GroupIDs is the set of groups this event is addressed to.
	GroupIDs []string `json:"group_ids"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(name string, start, end, deadline time.Time, createdAt, updatedAt time.Time) *Event {
	return &Event{
		Name:        name,
		StartUTC:    start,
		EndUTC:      end,
		DeadlineUTC: deadline,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// AudienceMember is a user reachable by an event through group membership,
// shown to managers before invitations are generated.
// swagger:model AudienceMember
type AudienceMember struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	// Create persists the event and its group assignments.
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// Update persists the event's mutable columns and replaces its group assignments.
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, search string, params PaginationParams) ([]*Event, int, error)
	ListUpcoming(ctx context.Context, after time.Time, params PaginationParams) ([]*Event, int, error)
	// ListUpcomingForUser narrows the upcoming listing to events addressed to
	// a group the user is a member of.
	ListUpcomingForUser(ctx context.Context, userID string, after time.Time, params PaginationParams) ([]*Event, int, error)
	// MarkSendInvitations flags the event for invitation distribution (one-way).
	MarkSendInvitations(ctx context.Context, id string) error
	// ListAudience returns the distinct members of the event's assigned groups.
	ListAudience(ctx context.Context, eventID string) ([]*AudienceMember, error)
}

// EventService defines the business logic for event management.
type EventService interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, search string, params PaginationParams) ([]*Event, int, error)
	ListUpcoming(ctx context.Context, params PaginationParams) ([]*Event, int, error)
	// ListUpcomingForUser returns upcoming events reaching the user through
	// group membership, for the member dashboard.
	ListUpcomingForUser(ctx context.Context, userID string, params PaginationParams) ([]*Event, int, error)
	// Copy duplicates an event (without invitations) under a new name.
	Copy(ctx context.Context, id string) (*Event, error)
	GetAudience(ctx context.Context, eventID string) ([]*AudienceMember, error)
}
