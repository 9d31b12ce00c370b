package notifier

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// SMTPNotifier delivers mail through a transactional SMTP relay.
type SMTPNotifier struct {
	cfg    config.NotificationConfig
	dialer *gomail.Dialer
}

// NewSMTPNotifier builds a notifier from config.
func NewSMTPNotifier(cfg config.NotificationConfig) *SMTPNotifier {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	return &SMTPNotifier{cfg: cfg, dialer: dialer}
}

// Send delivers a single message.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", n.cfg.EmailFrom, n.cfg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return n.dialer.DialAndSend(m)
}
