package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"
)

// ResendSender sends plain-text email through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) (*ResendSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("resend sender is required")
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}, nil
}

func (s *ResendSender) Send(ctx context.Context, recipient, subject, body string) error {
	return s.SendFrom(ctx, recipient, subject, body, "")
}

func (s *ResendSender) SendFrom(ctx context.Context, recipient, subject, body, sender string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("resend client is not initialized")
	}
	if recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	from := strings.TrimSpace(sender)
	if from == "" {
		from = s.from
	}

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      []string{recipient},
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		log.Error().Err(err).Str("recipient", recipient).Str("subject", subject).Msg("Failed to send Resend email")
		return fmt.Errorf("send resend email: %w", err)
	}

	log.Debug().Str("message_id", sent.Id).Str("recipient", recipient).Msg("Resend email queued")
	return nil
}
