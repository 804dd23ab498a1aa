package channel

import (
	"context"

	"sitewatch/internal/alert"
	logx "sitewatch/pkg/logx"
)

// Email is a stub delivery channel. The real mail relay is an external
// collaborator; until one is wired in, deliveries are logged so the
// channel can be enabled and observed end to end.
type Email struct {
	log logx.Logger
	to  string
}

func NewEmail(to string, log logx.Logger) *Email {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Email{log: log, to: to}
}

func (c *Email) Name() string { return "email" }

func (c *Email) Send(ctx context.Context, n alert.Notification) error {
	_ = ctx
	c.log.Info("email delivery (stub)",
		logx.String("to", c.to),
		logx.String("id", n.ID),
		logx.String("title", n.Title),
		logx.String("priority", string(n.Priority)))
	return nil
}
