package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"github.com/medok/medok-backend/pkg/config"
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ErrSMTPDisabled is returned when no SMTP host or sender address is configured.
var ErrSMTPDisabled = errors.New("smtp is not configured")

// SMTPSender sends over implicit TLS.
type SMTPSender struct {
	cfg  config.SMTPConfig
	send func(e *email.Email, addr string, auth smtp.Auth, tlsCfg *tls.Config) error
}

func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, ErrSMTPDisabled
	}
	return &SMTPSender{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth, tlsCfg *tls.Config) error {
			return e.SendWithTLS(addr, auth, tlsCfg)
		},
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)
	if msg.Text != "" {
		e.Text = []byte(msg.Text)
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(e, s.cfg.Addr(), auth, &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
		return fmt.Errorf("smtp send to %s: %w", s.cfg.Addr(), err)
	}
	return nil
}
