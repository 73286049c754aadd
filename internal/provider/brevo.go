package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-relay/internal/domain"
)

const defaultBrevoBaseURL = "https://api.brevo.com"

type brevoContact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoRequest struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	TextContent string         `json:"textContent"`
	HTMLContent string         `json:"htmlContent"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
}

// BrevoProvider delivers email through the Brevo (Sendinblue) transactional API.
type BrevoProvider struct {
	client *resty.Client
	sender brevoContact
}

func NewBrevoProvider(settings Settings) (*BrevoProvider, error) {
	return NewBrevoProviderWithClient(settings, resty.New())
}

func NewBrevoProviderWithClient(settings Settings, client *resty.Client) (*BrevoProvider, error) {
	apiKey := strings.TrimSpace(settings.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("brevo api key is required")
	}
	fromEmail := strings.TrimSpace(settings.FromEmail)
	if fromEmail == "" {
		return nil, fmt.Errorf("brevo sender email is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	baseURL, err := resolveBaseURL(settings.BaseURL, defaultBrevoBaseURL)
	if err != nil {
		return nil, err
	}
	configureClient(client, baseURL, settings.Timeout)
	client.SetHeader("api-key", apiKey)
	client.SetHeader("Accept", "application/json")

	return &BrevoProvider{
		client: client,
		sender: brevoContact{
			Name:  strings.TrimSpace(settings.FromName),
			Email: fromEmail,
		},
	}, nil
}

func (p *BrevoProvider) Send(ctx context.Context, msg domain.Message) (*Response, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	var result brevoResponse
	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(brevoRequest{
			Sender:      p.sender,
			To:          []brevoContact{{Email: strings.TrimSpace(msg.Recipient)}},
			Subject:     msg.Subject,
			TextContent: msg.Body,
			HTMLContent: htmlParagraph(msg.Body),
		}).
		SetResult(&result).
		Post("/v3/smtp/email")

	resp, err := toResponse(response, err)
	if err != nil {
		return nil, err
	}
	if id := strings.TrimSpace(result.MessageID); id != "" {
		resp.MessageID = id
	}
	return resp, nil
}
