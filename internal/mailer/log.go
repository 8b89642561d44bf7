package mailer

import (
	"context"

	"github.com/rs/zerolog"
)

type logSender struct {
	logger zerolog.Logger
}

// NewLogSender returns a Sender that only logs messages. Used in development.
func NewLogSender(logger zerolog.Logger) Sender {
	return &logSender{logger: logger.With().Str("service", "LogMailer").Logger()}
}

func (l *logSender) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	l.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("tag", msg.Tag).
		Int("html_bytes", len(msg.HTML)).
		Msg("Email captured by log driver")
	l.logger.Debug().Str("to", msg.To).Str("html", msg.HTML).Msg("Email body")
	return nil
}
