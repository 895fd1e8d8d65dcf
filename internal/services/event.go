package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clubevents/internal/domain"
)

type eventService struct {
	eventRepo domain.EventRepository
}

// NewEventService creates an EventService with the given repository.
func NewEventService(eventRepo domain.EventRepository) domain.EventService {
	return &eventService{eventRepo: eventRepo}
}

func validateEvent(event *domain.Event) error {
	event.Name = strings.TrimSpace(event.Name)
	if event.Name == "" {
		return fmt.Errorf("%w: event name is required", domain.ErrInvalidInput)
	}
	if event.StartUTC.IsZero() || event.EndUTC.IsZero() || event.DeadlineUTC.IsZero() {
		return fmt.Errorf("%w: start, end, and deadline are required", domain.ErrInvalidInput)
	}
	if event.EndUTC.Before(event.StartUTC) {
		return fmt.Errorf("%w: event ends before it starts", domain.ErrInvalidInput)
	}
	if event.Cost < 0 {
		return fmt.Errorf("%w: cost must not be negative", domain.ErrInvalidInput)
	}
	return nil
}

func (s *eventService) Create(ctx context.Context, event *domain.Event) error {
	if err := validateEvent(event); err != nil {
		return err
	}
	// Distribution is switched on explicitly, never at creation.
	event.SendInvitations = false
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (s *eventService) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (s *eventService) Update(ctx context.Context, event *domain.Event) error {
	if err := validateEvent(event); err != nil {
		return err
	}
	current, err := s.eventRepo.GetByID(ctx, event.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get event: %w", err)
	}
	// The distribution flag is one-way and owned by the invitation workflow.
	event.SendInvitations = current.SendInvitations
	event.CreatedAt = current.CreatedAt
	event.UpdatedAt = time.Now()
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (s *eventService) Delete(ctx context.Context, id string) error {
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func (s *eventService) List(ctx context.Context, search string, params domain.PaginationParams) ([]*domain.Event, int, error) {
	events, total, err := s.eventRepo.List(ctx, strings.TrimSpace(search), params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	return events, total, nil
}

func (s *eventService) ListUpcoming(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	events, total, err := s.eventRepo.ListUpcoming(ctx, time.Now().UTC(), params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	return events, total, nil
}

func (s *eventService) ListUpcomingForUser(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.Event, int, error) {
	events, total, err := s.eventRepo.ListUpcomingForUser(ctx, userID, time.Now().UTC(), params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	return events, total, nil
}

// Copy duplicates an event under a derived name. Invitations and the
// distribution flag are not carried over.
func (s *eventService) Copy(ctx context.Context, id string) (*domain.Event, error) {
	source, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	now := time.Now()
	copied := domain.NewEvent(source.Name+" (copy)", source.StartUTC, source.EndUTC, source.DeadlineUTC, now, now)
	copied.Description = source.Description
	copied.Location = source.Location
	copied.Equipment = source.Equipment
	copied.Cost = source.Cost
	copied.GroupIDs = append([]string(nil), source.GroupIDs...)
	if err := s.eventRepo.Create(ctx, copied); err != nil {
		return nil, fmt.Errorf("failed to create event copy: %w", err)
	}
	return copied, nil
}

func (s *eventService) GetAudience(ctx context.Context, eventID string) ([]*domain.AudienceMember, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	audience, err := s.eventRepo.ListAudience(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audience: %w", err)
	}
	return audience, nil
}
