package orgauth

import "context"

// Notifier delivers lifecycle emails. Implementations report delivery
// with a bool so callers can surface a warning without failing the
// operation that triggered the email.
type Notifier interface {
	SendInvitationEmail(ctx context.Context, toEmail, toName, orgName, fromName, token, message string) bool
	SendWelcomeEmail(ctx context.Context, toEmail, toName, orgName string) bool
	SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string) bool
	SendVerificationEmail(ctx context.Context, toEmail, toName, token string) bool
}

type noopNotifier struct{}

func (noopNotifier) SendInvitationEmail(context.Context, string, string, string, string, string, string) bool {
	return true
}

func (noopNotifier) SendWelcomeEmail(context.Context, string, string, string) bool { return true }

func (noopNotifier) SendPasswordResetEmail(context.Context, string, string, string) bool {
	return true
}

func (noopNotifier) SendVerificationEmail(context.Context, string, string, string) bool {
	return true
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
