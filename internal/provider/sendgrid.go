package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-relay/internal/domain"
)

const defaultSendGridBaseURL = "https://api.sendgrid.com"

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

// SendGridProvider delivers email through the SendGrid v3 mail API.
// SendGrid answers 202 with an empty body; the message id comes from X-Message-Id.
type SendGridProvider struct {
	client *resty.Client
	from   sendGridAddress
}

func NewSendGridProvider(settings Settings) (*SendGridProvider, error) {
	return NewSendGridProviderWithClient(settings, resty.New())
}

func NewSendGridProviderWithClient(settings Settings, client *resty.Client) (*SendGridProvider, error) {
	apiKey := strings.TrimSpace(settings.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	fromEmail := strings.TrimSpace(settings.FromEmail)
	if fromEmail == "" {
		return nil, fmt.Errorf("sendgrid sender email is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	baseURL, err := resolveBaseURL(settings.BaseURL, defaultSendGridBaseURL)
	if err != nil {
		return nil, err
	}
	configureClient(client, baseURL, settings.Timeout)
	client.SetAuthToken(apiKey)

	return &SendGridProvider{
		client: client,
		from: sendGridAddress{
			Email: fromEmail,
			Name:  strings.TrimSpace(settings.FromName),
		},
	}, nil
}

func (p *SendGridProvider) Send(ctx context.Context, msg domain.Message) (*Response, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(sendGridRequest{
			Personalizations: []sendGridPersonalization{
				{To: []sendGridAddress{{Email: strings.TrimSpace(msg.Recipient)}}},
			},
			From:    p.from,
			Subject: msg.Subject,
			Content: []sendGridContent{
				{Type: "text/plain", Value: msg.Body},
				{Type: "text/html", Value: htmlParagraph(msg.Body)},
			},
		}).
		Post("/v3/mail/send")

	return toResponse(response, err)
}
