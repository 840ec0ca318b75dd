package smtp

import (
	"context"
	"fmt"

	"github.com/go-otp-gate/internal/config"
	"github.com/go-otp-gate/internal/pkg/id"
	"gopkg.in/gomail.v2"
)

// Mailer sends multipart email over SMTP.
type Mailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		dialer:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:     cfg.EmailFrom,
		fromName: cfg.EmailFromName,
	}
}

// Send delivers one message and returns the Message-ID it was stamped with.
// gomail has no context support; ctx is only checked before dialing.
func (m *Mailer) Send(ctx context.Context, to, subject, text, html string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	msgID := id.Prefixed("smtp")
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", msgID, m.dialer.Host))
	msg.SetBody("text/plain", text)
	if html != "" {
		msg.AddAlternative("text/html", html)
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return msgID, nil
}
