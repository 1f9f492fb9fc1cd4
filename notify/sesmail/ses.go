// Package sesmail delivers notify email through AWS SES.
package sesmail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/scriberly/go-orgauth/notify"
)

// Sender implements notify.EmailSender using AWS SES.
type Sender struct {
	client      *ses.Client
	fromAddress string
}

var _ notify.EmailSender = (*Sender)(nil)

// NewSender creates a new SES email sender. fromAddress is used when a
// message carries no From of its own.
func NewSender(client *ses.Client, fromAddress string) *Sender {
	return &Sender{
		client:      client,
		fromAddress: fromAddress,
	}
}

// SendEmail sends a single email via SES.
func (s *Sender) SendEmail(ctx context.Context, msg notify.EmailMessage) error {
	from := msg.From
	if from == "" {
		from = s.fromAddress
	}

	dest := &types.Destination{
		ToAddresses: msg.To,
	}

	body := &types.Body{}
	if msg.TextBody != "" {
		body.Text = &types.Content{
			Data:    aws.String(msg.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}
	if msg.HTMLBody != "" {
		body.Html = &types.Content{
			Data:    aws.String(msg.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: dest,
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: body,
		},
	}

	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send to %v failed: %w", msg.To, err)
	}

	return nil
}
