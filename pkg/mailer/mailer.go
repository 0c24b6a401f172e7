// Package mailer delivers rendered transactional email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

var errRecipientRequired = errors.New("mailer: recipient required")

// Message is a single rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer sends messages from the configured from address.
type Mailer struct {
	client   sender
	from     string
	fromName string
}

// New dials nothing; connections are opened per Send.
func New(cfg config.SMTPConfig) (*Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host required")
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return newMailer(client, cfg.DefaultFrom, cfg.FromName), nil
}

func newMailer(client sender, from, fromName string) *Mailer {
	return &Mailer{client: client, from: from, fromName: fromName}
}

// Send builds a multipart message and delivers it.
func (m *Mailer) Send(ctx context.Context, message Message) error {
	msg, err := m.build(message)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *Mailer) build(message Message) (*mail.Msg, error) {
	to := strings.TrimSpace(message.To)
	if to == "" {
		return nil, errRecipientRequired
	}
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(message.Subject)
	if message.Text != "" {
		msg.SetBodyString(mail.TypeTextPlain, message.Text)
		if message.HTML != "" {
			msg.AddAlternativeString(mail.TypeTextHTML, message.HTML)
		}
		return msg, nil
	}
	msg.SetBodyString(mail.TypeTextHTML, message.HTML)
	return msg, nil
}
