package channel

import (
	"context"
	"fmt"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/config"
)

// EmailAdapter delivers messages over SMTP.
type EmailAdapter struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailAdapter(cfg config.EmailChannelConfig) *EmailAdapter {
	return &EmailAdapter{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send dispatches one email. A malformed recipient is a permanent failure;
// dial and delivery errors are transient so the router retries them. SMTP
// assigns no retrievable message id, so one is minted locally for the
// audit trail.
func (a *EmailAdapter) Send(ctx context.Context, msg Message) (SendResult, error) {
	if err := checkmail.ValidateFormat(msg.To); err != nil {
		return SendResult{}, apperrors.NewPermanent(fmt.Errorf("invalid recipient %q: %w", msg.To, err))
	}

	m := gomail.NewMessage()
	m.SetHeader("From", a.from)
	m.SetHeader("To", msg.To)
	if msg.Subject != "" {
		m.SetHeader("Subject", msg.Subject)
	}
	if msg.Campaign != "" {
		m.SetHeader("X-Campaign", msg.Campaign)
	}
	m.SetBody("text/plain", msg.Text)

	// gomail has no context support; run the blocking send aside and
	// honor cancellation here. An abandoned send is reported transient so
	// the item is retried rather than lost.
	done := make(chan error, 1)
	go func() {
		done <- a.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return SendResult{}, apperrors.NewTransient(ctx.Err())
	case err := <-done:
		if err != nil {
			return SendResult{}, apperrors.NewTransient(fmt.Errorf("smtp send failed: %w", err))
		}
	}

	return SendResult{MessageID: fmt.Sprintf("smtp-%s", uuid.New().String())}, nil
}
