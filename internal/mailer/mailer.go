// Package mailer sends transactional email through a configurable driver.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"erpsaas/internal/apperr"
	"erpsaas/internal/config"

	"github.com/rs/zerolog"
)

var ErrInvalidConfig = errors.New("mailer: invalid config")

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      string
	Subject string
	HTML    string
	Tag     string
}

func (m Message) validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return apperr.Validation("invalid recipient %q", m.To)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return apperr.Validation("email subject is required")
	}
	return nil
}

// New picks the driver named by cfg.MailDriver.
func New(cfg *config.Config, logger zerolog.Logger) (Sender, error) {
	switch strings.ToLower(cfg.MailDriver) {
	case "", "log":
		return NewLogSender(logger), nil
	case "smtp":
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		})
	case "postmark":
		return NewPostmarkSender(PostmarkConfig{
			ServerToken:  cfg.PostmarkServerToken,
			AccountToken: cfg.PostmarkAccountToken,
			From:         cfg.EmailFrom,
			ReplyTo:      cfg.SupportEmail,
		})
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, cfg.MailDriver)
	}
}

func sendError(err error) error {
	return apperr.Upstream("mail", "send", err)
}
