package mailer

import (
	"context"
	"fmt"

	"erpsaas/internal/apperr"

	"github.com/mrz1836/postmark"
)

type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	From         string
	ReplyTo      string
}

type postmarkSender struct {
	client *postmark.Client
	cfg    PostmarkConfig
}

// NewPostmarkSender returns a Sender backed by Postmark's transactional API.
func NewPostmarkSender(cfg PostmarkConfig) (Sender, error) {
	if cfg.ServerToken == "" || cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: Postmark server and account tokens are required", ErrInvalidConfig)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("%w: sender address is required", ErrInvalidConfig)
	}
	return &postmarkSender{client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken), cfg: cfg}, nil
}

func (p *postmarkSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:       p.cfg.From,
		ReplyTo:    p.cfg.ReplyTo,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.HTML,
		TrackOpens: true,
	})
	if err != nil {
		return sendError(err)
	}
	if resp.ErrorCode > 0 {
		return &apperr.UpstreamError{
			Service: "mail",
			Op:      "send",
			Message: fmt.Sprintf("postmark error %d: %s", resp.ErrorCode, resp.Message),
		}
	}
	return nil
}
