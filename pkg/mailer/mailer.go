package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/giftwell-app/giftwell-backend/pkg/config"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
)

// Message is a single outbound email.
type Message struct {
	ToEmail   string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Client wraps the SendGrid v3 API.
type Client struct {
	sg       *sendgrid.Client
	from     *mail.Email
	logger   *logger.Logger
	disabled bool
}

// NewClient builds a SendGrid-backed mailer. An empty API key yields a
// disabled client that logs instead of sending, so dev environments work
// without credentials.
func NewClient(cfg config.SendgridConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errors.New("mailer logger is required")
	}
	from := strings.TrimSpace(cfg.DefaultFrom)
	if from == "" {
		return nil, errors.New("sendgrid from email is required")
	}

	c := &Client{
		from:   mail.NewEmail(cfg.FromName, from),
		logger: logg,
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		c.disabled = true
		return c, nil
	}
	c.sg = sendgrid.NewSendClient(apiKey)
	return c, nil
}

// Send delivers the message through SendGrid.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}

	fields := map[string]any{
		"to":      "[REDACTED]",
		"subject": msg.Subject,
	}
	logCtx := c.logger.WithFields(ctx, fields)

	if c.disabled {
		c.logger.Info(logCtx, "mailer disabled, skipping send")
		return nil
	}

	email := mail.NewSingleEmail(c.from, msg.Subject, mail.NewEmail(msg.ToName, msg.ToEmail), msg.PlainText, msg.HTML)
	resp, err := c.sg.SendWithContext(ctx, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sendgrid send failed")
	}
	if resp.StatusCode >= 400 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("sendgrid send returned %d", resp.StatusCode))
	}

	c.logger.Info(logCtx, "email dispatched")
	return nil
}
