package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// LogSender stands in when no provider is configured: messages are logged, not delivered.
type LogSender struct {
	from string
}

func NewLogSender(from string) *LogSender {
	return &LogSender{from: from}
}

func (s *LogSender) Send(ctx context.Context, recipient, subject, body string) error {
	return s.SendFrom(ctx, recipient, subject, body, "")
}

func (s *LogSender) SendFrom(ctx context.Context, recipient, subject, body, sender string) error {
	if recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	if sender == "" {
		sender = s.from
	}
	log.Ctx(ctx).Info().
		Str("recipient", recipient).
		Str("sender", sender).
		Str("subject", subject).
		Int("body_bytes", len(body)).
		Msg("Email delivery disabled, message logged")
	return nil
}
