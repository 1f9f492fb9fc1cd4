// Package notify turns orgauth lifecycle events into outbound email.
// A Mailer composes the messages; delivery is pluggable through the
// EmailSender interface, with a console sender here and an SES backed
// one in notify/sesmail.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	orgauth "github.com/scriberly/go-orgauth"
)

// EmailMessage is a single outbound email.
type EmailMessage struct {
	From     string
	To       []string
	ReplyTo  string
	Subject  string
	TextBody string
	HTMLBody string
}

// EmailSender delivers a composed message.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// Mailer implements orgauth.Notifier by composing the lifecycle emails
// and handing them to a sender. Delivery failures are logged and
// reported as false, never as errors: the triggering operation has
// already committed.
type Mailer struct {
	sender      EmailSender
	fromAddress string
	baseURL     string
	logger      orgauth.Logger
}

var _ orgauth.Notifier = (*Mailer)(nil)

// NewMailer builds a Mailer. baseURL is the public root the token
// links point at, e.g. https://app.example.com.
func NewMailer(sender EmailSender, fromAddress, baseURL string) *Mailer {
	return &Mailer{
		sender:      sender,
		fromAddress: fromAddress,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

func (m *Mailer) WithLogger(logger orgauth.Logger) *Mailer {
	m.logger = logger
	return m
}

func (m *Mailer) SendInvitationEmail(ctx context.Context, toEmail, toName, orgName, fromName, token, message string) bool {
	link := m.link("/invitations/accept", token)

	greeting := "Hi,"
	if toName != "" {
		greeting = fmt.Sprintf("Hi %s,", toName)
	}

	body := fmt.Sprintf(
		"%s\n\n%s invited you to join %s.\n\nAccept the invitation:\n%s\n",
		greeting, fromName, orgName, link,
	)
	if message != "" {
		body += fmt.Sprintf("\nNote from %s:\n%s\n", fromName, message)
	}

	return m.deliver(ctx, EmailMessage{
		From:     m.fromAddress,
		To:       []string{toEmail},
		Subject:  fmt.Sprintf("You have been invited to %s", orgName),
		TextBody: body,
	})
}

func (m *Mailer) SendWelcomeEmail(ctx context.Context, toEmail, toName, orgName string) bool {
	greeting := "Hi,"
	if toName != "" {
		greeting = fmt.Sprintf("Hi %s,", toName)
	}

	return m.deliver(ctx, EmailMessage{
		From:     m.fromAddress,
		To:       []string{toEmail},
		Subject:  fmt.Sprintf("Welcome to %s", orgName),
		TextBody: fmt.Sprintf("%s\n\nYour membership in %s is now active.\n", greeting, orgName),
	})
}

func (m *Mailer) SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string) bool {
	link := m.link("/password/reset", token)

	greeting := "Hi,"
	if toName != "" {
		greeting = fmt.Sprintf("Hi %s,", toName)
	}

	return m.deliver(ctx, EmailMessage{
		From:     m.fromAddress,
		To:       []string{toEmail},
		Subject:  "Reset your password",
		TextBody: fmt.Sprintf("%s\n\nUse the link below to choose a new password:\n%s\n\nIf you did not request this, ignore this email.\n", greeting, link),
	})
}

func (m *Mailer) SendVerificationEmail(ctx context.Context, toEmail, toName, token string) bool {
	link := m.link("/verify-email", token)

	greeting := "Hi,"
	if toName != "" {
		greeting = fmt.Sprintf("Hi %s,", toName)
	}

	return m.deliver(ctx, EmailMessage{
		From:     m.fromAddress,
		To:       []string{toEmail},
		Subject:  "Verify your email address",
		TextBody: fmt.Sprintf("%s\n\nConfirm this address belongs to you:\n%s\n", greeting, link),
	})
}

func (m *Mailer) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", m.baseURL, path, url.QueryEscape(token))
}

func (m *Mailer) deliver(ctx context.Context, msg EmailMessage) bool {
	if err := m.sender.SendEmail(ctx, msg); err != nil {
		if m.logger != nil {
			m.logger.Warn("email delivery failed subject=%q: %v", msg.Subject, err)
		}
		return false
	}
	return true
}
