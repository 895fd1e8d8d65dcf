package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"clubevents/internal/domain"
)

const (
	invitationTokenBytes = 16

	// broadcastPageSize bounds the per-query batch when walking all
	// invitations of an event.
	broadcastPageSize = 200
)

type invitationService struct {
	invRepo      domain.InvitationRepository
	eventRepo    domain.EventRepository
	userRepo     domain.UserRepository
	emailService domain.EmailService
	baseURL      string
}

// NewInvitationService creates an InvitationService with the given repositories
// and email service. baseURL is the public frontend origin used in reply links.
func NewInvitationService(invRepo domain.InvitationRepository, eventRepo domain.EventRepository, userRepo domain.UserRepository, emailService domain.EmailService, baseURL string) domain.InvitationService {
	return &invitationService{
		invRepo:      invRepo,
		eventRepo:    eventRepo,
		userRepo:     userRepo,
		emailService: emailService,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
}

func (s *invitationService) GenerateInvitations(ctx context.Context, eventID string) (*domain.DistributionResult, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if !event.SendInvitations {
		if err := s.eventRepo.MarkSendInvitations(ctx, eventID); err != nil {
			return nil, fmt.Errorf("failed to mark event for distribution: %w", err)
		}
	}

	now := time.Now().UTC()
	pairs, err := s.invRepo.ListMissing(ctx, eventID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve missing invitations: %w", err)
	}

	result := &domain.DistributionResult{Failed: []string{}}
	for _, pair := range pairs {
		token, err := generateInvitationToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token: %w", err)
		}
		inv := &domain.Invitation{
			EventID: pair.EventID,
			UserID:  pair.UserID,
			Token:   token,
		}
		if err := s.invRepo.Create(ctx, inv); err != nil {
			// A concurrent run already created this one; skip it.
			if errors.Is(err, domain.ErrDuplicateInvitation) {
				continue
			}
			return nil, fmt.Errorf("failed to create invitation: %w", err)
		}
		result.Issued++

		if err := s.deliver(ctx, inv, pair.Email, pair.FirstName, pair.EventName); err != nil {
			log.Printf("[INVITATION] Delivery to %s failed: %v", pair.Email, err)
			result.Failed = append(result.Failed, pair.Email)
			continue
		}
		result.Sent++
	}
	return result, nil
}

func (s *invitationService) ResendInvitation(ctx context.Context, invitationID string) error {
	inv, err := s.invRepo.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get invitation: %w", err)
	}
	event, err := s.eventRepo.GetByID(ctx, inv.EventID)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	user, err := s.userRepo.GetByID(ctx, inv.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.deliver(ctx, inv, user.Email, user.FirstName, event.Name); err != nil {
		return fmt.Errorf("failed to resend invitation: %w", err)
	}
	return nil
}

// deliver records the attempt timestamp, sends the invitation email, and
// records the success timestamp only if the transport accepted the message.
func (s *invitationService) deliver(ctx context.Context, inv *domain.Invitation, email, firstName, eventName string) error {
	now := time.Now().UTC()
	if err := s.invRepo.MarkSendAttempt(ctx, inv.ID, now); err != nil {
		return fmt.Errorf("failed to record send attempt: %w", err)
	}
	data := &domain.InvitationEmailData{
		Email:     email,
		FirstName: firstName,
		EventName: eventName,
		ReplyURL:  s.replyURL(inv),
	}
	if err := s.emailService.SendInvitation(ctx, data); err != nil {
		return err
	}
	if err := s.invRepo.MarkSendSuccess(ctx, inv.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record send success: %w", err)
	}
	return nil
}

func (s *invitationService) AuthorizeByToken(ctx context.Context, invitationID, token string) (*domain.ReplyAccess, error) {
	inv, err := s.invRepo.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(inv.Token), []byte(token)) != 1 {
		return nil, domain.ErrForbidden
	}
	event, err := s.eventRepo.GetByID(ctx, inv.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &domain.ReplyAccess{
		Invitation: inv,
		Event:      event,
		CanEdit:    !time.Now().UTC().After(event.DeadlineUTC),
	}, nil
}

func (s *invitationService) LookupByToken(ctx context.Context, token string) (*domain.ReplyAccess, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	inv, err := s.invRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to look up invitation: %w", err)
	}
	event, err := s.eventRepo.GetByID(ctx, inv.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &domain.ReplyAccess{
		Invitation: inv,
		Event:      event,
		CanEdit:    !time.Now().UTC().After(event.DeadlineUTC),
	}, nil
}

func (s *invitationService) AuthorizeBySession(ctx context.Context, invitationID, userID string, role domain.Role) (*domain.ReplyAccess, error) {
	inv, err := s.invRepo.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if inv.UserID != userID && !role.AtLeast(domain.RoleManager) {
		return nil, domain.ErrForbidden
	}
	event, err := s.eventRepo.GetByID(ctx, inv.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &domain.ReplyAccess{
		Invitation:   inv,
		Event:        event,
		ActorUserID:  userID,
		EditingOther: inv.UserID != userID,
		CanEdit:      !time.Now().UTC().After(event.DeadlineUTC),
	}, nil
}

func (s *invitationService) SubmitReply(ctx context.Context, access *domain.ReplyAccess, reply domain.Reply, numFriends, numCarSeats int) (*domain.Invitation, error) {
	if access == nil || access.Invitation == nil {
		return nil, fmt.Errorf("%w: missing reply access", domain.ErrInvalidInput)
	}
	if !access.CanEdit {
		return nil, domain.ErrDeadlinePassed
	}
	if numFriends < 0 || numCarSeats < 0 {
		return nil, fmt.Errorf("%w: counts must not be negative", domain.ErrInvalidInput)
	}
	// Counts only make sense on an accepted invitation; anything else is
	// rejected rather than silently clamped.
	if reply != domain.ReplyAccepted && (numFriends != 0 || numCarSeats != 0) {
		return nil, fmt.Errorf("%w: counts require an accepted reply", domain.ErrInvalidInput)
	}

	inv := access.Invitation
	if err := s.invRepo.UpdateReply(ctx, inv.ID, reply, numFriends, numCarSeats); err != nil {
		return nil, fmt.Errorf("failed to update reply: %w", err)
	}
	inv.Reply = reply
	inv.NumFriends = numFriends
	inv.NumCarSeats = numCarSeats
	return inv, nil
}

func (s *invitationService) ListEventInvitations(ctx context.Context, eventID string, replyFilter *domain.Reply, params domain.PaginationParams) ([]*domain.InvitationWithUser, int, *domain.InvitationStats, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, nil, err
		}
		return nil, 0, nil, fmt.Errorf("failed to get event: %w", err)
	}
	invitations, total, err := s.invRepo.ListByEventID(ctx, eventID, replyFilter, params)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	stats, err := s.invRepo.StatsByEventID(ctx, eventID)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to load invitation stats: %w", err)
	}
	return invitations, total, stats, nil
}

func (s *invitationService) ListUserInvitations(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.InvitationWithEvent, int, error) {
	invitations, total, err := s.invRepo.ListByUserID(ctx, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list user invitations: %w", err)
	}
	return invitations, total, nil
}

func (s *invitationService) BroadcastUpdate(ctx context.Context, eventID, note string) (int, []string, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return 0, nil, fmt.Errorf("%w: note is required", domain.ErrInvalidInput)
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("failed to get event: %w", err)
	}

	sent := 0
	failed := []string{}
	params := domain.PaginationParams{Page: 1, PageSize: broadcastPageSize}
	for {
		batch, total, err := s.invRepo.ListByEventID(ctx, eventID, nil, params)
		if err != nil {
			return sent, failed, fmt.Errorf("failed to list invitations: %w", err)
		}
		for _, item := range batch {
			data := &domain.EventUpdateEmailData{
				Email:     item.Email,
				FirstName: item.FirstName,
				EventName: event.Name,
				Note:      note,
				ReplyURL:  s.replyURL(item.Invitation),
			}
			if err := s.emailService.SendEventUpdate(ctx, data); err != nil {
				log.Printf("[INVITATION] Update to %s failed: %v", item.Email, err)
				failed = append(failed, item.Email)
				continue
			}
			sent++
		}
		if params.Page*params.PageSize >= total || len(batch) == 0 {
			break
		}
		params.Page++
	}
	return sent, failed, nil
}

func (s *invitationService) replyURL(inv *domain.Invitation) string {
	return s.baseURL + "/invitations/" + inv.ID + "?token=" + url.QueryEscape(inv.Token)
}

func generateInvitationToken() (string, error) {
	b := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
