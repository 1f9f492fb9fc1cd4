package notify

import (
	"context"
	"fmt"
	"strings"
)

// ConsoleSender prints emails to the terminal. Intended for development
// and testing.
type ConsoleSender struct{}

// NewConsoleSender creates a new console email sender.
func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

// SendEmail logs the email details instead of sending it.
func (s *ConsoleSender) SendEmail(_ context.Context, msg EmailMessage) error {
	fmt.Printf("[MAIL] to=%s subject=%q\n", strings.Join(msg.To, ", "), msg.Subject)
	if msg.TextBody != "" {
		fmt.Printf("[MAIL] body:\n%s\n", msg.TextBody)
	}
	return nil
}
