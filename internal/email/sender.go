package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Transport delivers one message to one recipient. Implementations must
// honor ctx cancellation; a deadline exceeded is a delivery failure, never
// a hang.
type Transport interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPTransport sends through an SMTP relay via gomail.
type SMTPTransport struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (t *SMTPTransport) Send(ctx context.Context, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", t.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(t.Host, t.Port, t.Username, t.Password)

	// gomail has no context support, so run the dial in a goroutine and
	// race it against the deadline.
	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", to, ctx.Err())
	}
}
