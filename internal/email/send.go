package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const sendTimeout = 15 * time.Second

// SendToAll delivers msg to each recipient separately. It returns how many sends succeeded
// and the joined errors of the ones that did not.
func SendToAll(ctx context.Context, sender EmailSender, recipients []string, msg Message) (int, error) {
	if sender == nil {
		return 0, fmt.Errorf("email sender is required")
	}
	logger := log.Ctx(ctx)

	sent := 0
	var errs []error
	for _, recipient := range recipients {
		sendCtx, cancel := sendContext(ctx)
		err := sender.Send(sendCtx, recipient, msg.Subject, msg.Body)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("recipient", recipient).Msg("Failed to send email")
			errs = append(errs, fmt.Errorf("%s: %w", recipient, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// sendContext keeps the caller's values but not its cancellation, so a finished request or
// job deadline does not abort a send already in progress.
func sendContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(parent), sendTimeout)
}
