package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/diagnosis/jf-travel/pkg/config"
	"github.com/diagnosis/jf-travel/pkg/logger"
)

var ErrNotConfigured = errors.New("mailersend not configured")

type Email struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Service interface {
	Send(ctx context.Context, email Email) error
}

// New picks the dev mailer when dev mode is on or no API key is set.
func New(cfg config.EmailConfig) Service {
	if cfg.DevMode || cfg.MailerSendKey == "" {
		return NewDevMailer()
	}
	return NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.FromEmail)
}

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) Send(ctx context.Context, email Email) error {
	if !m.enabled {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: email.ToName, Email: email.ToEmail}})
	msg.SetSubject(email.Subject)

	if strings.TrimSpace(email.Text) != "" {
		msg.SetText(email.Text)
	}
	if strings.TrimSpace(email.HTML) != "" {
		msg.SetHTML(email.HTML)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	logger.DebugContext(ctx, "Email accepted", "to", email.ToEmail, "message_id", res.Header.Get("X-Message-Id"))
	return nil
}

// DevMailer writes messages to the log instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(ctx context.Context, email Email) error {
	logger.InfoContext(ctx, "[DEV MAIL] "+email.Subject,
		"to", email.ToEmail,
		"name", email.ToName,
		"text", email.Text,
	)
	return nil
}
