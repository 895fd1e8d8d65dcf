package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
// A nil error means the transport accepted the message.
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// InvitationEmailData holds data for the invitation email.
type InvitationEmailData struct {
	Email     string
	FirstName string
	EventName string
	// ReplyURL carries the capability token for anonymous replies.
	ReplyURL string
}

// EventUpdateEmailData holds data for a manager-triggered event update broadcast.
type EventUpdateEmailData struct {
	Email     string
	FirstName string
	EventName string
	Note      string
	ReplyURL  string
}

// RegistrationConfirmEmailData holds data for the registration confirmation email.
type RegistrationConfirmEmailData struct {
	Email      string
	FirstName  string
	ConfirmURL string
}

// PasswordResetEmailData holds data for the password reset email. Account
// security mail addresses the user by full name.
type PasswordResetEmailData struct {
	Email      string
	Name       string
	ConfirmURL string
}

// EmailChangeEmailData holds data for the email change confirmation email,
// sent to the new address.
type EmailChangeEmailData struct {
	Email      string
	Name       string
	ConfirmURL string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendInvitation(ctx context.Context, data *InvitationEmailData) error
	SendEventUpdate(ctx context.Context, data *EventUpdateEmailData) error
	SendRegistrationConfirm(ctx context.Context, data *RegistrationConfirmEmailData) error
	SendPasswordReset(ctx context.Context, data *PasswordResetEmailData) error
	SendEmailChangeConfirm(ctx context.Context, data *EmailChangeEmailData) error
}
