// Package sendgrid adapts sendgrid-go to the delivery mailer contract.
package sendgrid

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Client sends transactional email through the SendGrid v3 API.
type Client struct {
	apiKey   string
	fromAddr string
	fromName string
}

// NewClient returns a new Sendgrid client
func NewClient(apiKey, fromAddr, fromName string) *Client {
	return &Client{apiKey: apiKey, fromAddr: fromAddr, fromName: fromName}
}

// Send delivers one message and returns the provider message id.
func (c *Client) Send(ctx context.Context, to, subject, text, html string) (string, error) {
	from := mail.NewEmail(c.fromName, c.fromAddr)
	msg := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), text, html)
	resp, err := sendgrid.NewSendClient(c.apiKey).SendWithContext(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("sendgrid client failed: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("sendgrid failure received (%d): %s", resp.StatusCode, resp.Body)
	}
	return messageID(resp.Headers), nil
}

func messageID(headers map[string][]string) string {
	for _, k := range []string{"X-Message-Id", "X-Message-ID"} {
		if v := headers[k]; len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
