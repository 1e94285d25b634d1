package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridConfig holds configuration for the SendGrid gateway
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridGateway sends email through the SendGrid v3 API
type SendGridGateway struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendGridGateway creates a new SendGrid gateway
func NewSendGridGateway(config SendGridConfig) *SendGridGateway {
	return &SendGridGateway{
		client: sendgrid.NewSendClient(config.APIKey),
		from:   sgmail.NewEmail(config.FromName, config.FromEmail),
	}
}

func (g *SendGridGateway) GetName() string { return "sendgrid" }

// Send builds a single-recipient message. Any 2xx response counts as accepted.
func (g *SendGridGateway) Send(ctx context.Context, msg Message) error {
	to := sgmail.NewEmail(msg.Name, msg.To)
	m := sgmail.NewSingleEmail(g.from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := g.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
