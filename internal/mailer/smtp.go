package mailer

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type smtpSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender returns a Sender that relays through an SMTP server with PLAIN auth.
func NewSMTPSender(cfg SMTPConfig) (Sender, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("%w: SMTP host and port are required", ErrInvalidConfig)
	}
	if cfg.User == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: SMTP username and password must be provided", ErrInvalidConfig)
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &smtpSender{cfg: cfg, send: smtp.SendMail}, nil
}

func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return sendError(err)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	if err := s.send(addr, auth, s.cfg.From, []string{msg.To}, buildMIME(s.cfg.From, msg)); err != nil {
		return sendError(err)
	}
	return nil
}

func buildMIME(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", headerValue(msg.To))
	fmt.Fprintf(&b, "From: %s\r\n", headerValue(from))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(msg.Subject)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// headerValue folds line breaks and other control characters into spaces so
// a value cannot start a new header line.
func headerValue(v string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, v))
}
