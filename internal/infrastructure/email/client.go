// Package email provides the email client for sending transactional emails.
package email

import (
	"fmt"

	"github.com/ecowell/eco-engine-go/internal/infrastructure/email/templates"
	"github.com/ecowell/eco-engine-go/pkg/config"
	"github.com/resendlabs/resend-go"
)

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendWelcomeEmail(toEmail, firstname, tier string) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client *resend.Client
	from   string
}

// NewService creates a new email service client, returning the Service interface.
func NewService() (Service, error) {
	if config.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	return &ResendClient{
		client: resend.NewClient(config.ResendAPIKey),
		from:   config.EmailFrom,
	}, nil
}

// SendWelcomeEmail composes and sends the post-conversion welcome email.
func (c *ResendClient) SendWelcomeEmail(toEmail, firstname, tier string) error {
	content := templates.GetWelcomeEmailContent(templates.WelcomeEmailProps{
		Firstname: firstname,
		Tier:      tier,
	})

	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{toEmail},
		Subject: "Welcome to Eco",
		Html:    templates.GetEmailLayout(content),
	}

	_, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send welcome email via Resend: %w", err)
	}

	return nil
}
