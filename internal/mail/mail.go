// Package mail sends contact notifications over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("email settings are not configured")
	ErrNoRecipient   = errors.New("contact has no email address")
	ErrNoPIN         = errors.New("contact has no PIN")
)

type Config struct {
	Server   string
	Port     int
	Username string
	Password string
	UseTLS   bool
	From     string
}

// Configured reports whether a server and sender are set.
func (c Config) Configured() bool {
	return c.Server != "" && c.From != ""
}

// Message is a plain text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers messages with go-mail. The configuration is read on
// every send so changed settings apply without a restart.
type SMTPSender struct {
	config func() Config
	logger *zap.Logger
}

func NewSMTPSender(config func() Config, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPSender{config: config, logger: logger}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	cfg := s.config()
	if !cfg.Configured() {
		return ErrNotConfigured
	}
	if msg.To == "" {
		return ErrNoRecipient
	}

	m := gomail.NewMsg()
	if err := m.From(cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	var opts []gomail.Option
	if cfg.Port > 0 {
		opts = append(opts, gomail.WithPort(cfg.Port))
	}
	if cfg.UseTLS {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.NoTLS))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Server, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// PINMessage builds the message that tells a contact their phone PIN.
func PINMessage(to, name, pin string) (Message, error) {
	if to == "" {
		return Message{}, ErrNoRecipient
	}
	if pin == "" {
		return Message{}, ErrNoPIN
	}
	return Message{
		To:      to,
		Subject: "Your phone PIN",
		Body: fmt.Sprintf("Dear %s,\n\nYour phone PIN is: %s\n\nPlease keep it confidential.\n",
			name, pin),
	}, nil
}
