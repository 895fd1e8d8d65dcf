package services

import (
	"context"
	"fmt"
	"log"

	"clubevents/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer}
}

// SendInvitation sends an invitation email using the "invitation" template and the given data.
func (s *emailService) SendInvitation(ctx context.Context, data *domain.InvitationEmailData) error {
	if data == nil {
		return fmt.Errorf("invitation email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("invitation", data)
	if err != nil {
		return fmt.Errorf("failed to render invitation template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send invitation email: %w", err)
	}
	log.Printf("[EMAIL] Invitation for %q sent to %s", data.EventName, data.Email)
	return nil
}

// SendEventUpdate sends an event update broadcast using the "event_update" template.
func (s *emailService) SendEventUpdate(ctx context.Context, data *domain.EventUpdateEmailData) error {
	if data == nil {
		return fmt.Errorf("event update email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("event_update", data)
	if err != nil {
		return fmt.Errorf("failed to render event_update template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send event update email: %w", err)
	}
	log.Printf("[EMAIL] Event update for %q sent to %s", data.EventName, data.Email)
	return nil
}

// SendRegistrationConfirm sends the registration confirmation email using the
// "registration_confirm" template.
func (s *emailService) SendRegistrationConfirm(ctx context.Context, data *domain.RegistrationConfirmEmailData) error {
	if data == nil {
		return fmt.Errorf("registration confirm email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("registration_confirm", data)
	if err != nil {
		return fmt.Errorf("failed to render registration_confirm template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send registration confirm email: %w", err)
	}
	log.Printf("[EMAIL] Registration confirmation sent to %s", data.Email)
	return nil
}

// SendPasswordReset sends the password reset email using the "password_reset" template.
func (s *emailService) SendPasswordReset(ctx context.Context, data *domain.PasswordResetEmailData) error {
	if data == nil {
		return fmt.Errorf("password reset email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("password_reset", data)
	if err != nil {
		return fmt.Errorf("failed to render password_reset template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	log.Printf("[EMAIL] Password reset sent to %s", data.Email)
	return nil
}

// SendEmailChangeConfirm sends the email change confirmation to the new address
// using the "email_change" template.
func (s *emailService) SendEmailChangeConfirm(ctx context.Context, data *domain.EmailChangeEmailData) error {
	if data == nil {
		return fmt.Errorf("email change email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("email_change", data)
	if err != nil {
		return fmt.Errorf("failed to render email_change template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send email change email: %w", err)
	}
	log.Printf("[EMAIL] Email change confirmation sent to %s", data.Email)
	return nil
}
