package email

import (
	"context"
	"fmt"

	"github.com/rosterforge/rosterforge/internal/config"
)

// EmailSender provides a testable abstraction over the delivery provider.
type EmailSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
	SendFrom(ctx context.Context, recipient, subject, body, sender string) error
}

// NewFromConfig picks the provider named in the email config section.
func NewFromConfig(cfg config.EmailConfig) (EmailSender, error) {
	switch cfg.Provider {
	case "", config.EmailProviderNone:
		return NewLogSender(cfg.FromAddress), nil
	case config.EmailProviderSES:
		client, err := NewSESClient(cfg.SESAccessKeyID, cfg.SESSecretAccessKey, cfg.Region, cfg.FromAddress)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.EmailProviderResend:
		sender, err := NewResendSender(cfg.ResendAPIKey, cfg.FromAddress)
		if err != nil {
			return nil, err
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Provider)
	}
}
