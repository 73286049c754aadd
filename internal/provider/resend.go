package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-relay/internal/domain"
)

const defaultResendBaseURL = "https://api.resend.com"

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

// ResendProvider delivers email through the Resend REST API.
type ResendProvider struct {
	client *resty.Client
	from   string
}

func NewResendProvider(settings Settings) (*ResendProvider, error) {
	return NewResendProviderWithClient(settings, resty.New())
}

func NewResendProviderWithClient(settings Settings, client *resty.Client) (*ResendProvider, error) {
	apiKey := strings.TrimSpace(settings.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	fromEmail := strings.TrimSpace(settings.FromEmail)
	if fromEmail == "" {
		return nil, fmt.Errorf("resend sender email is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	baseURL, err := resolveBaseURL(settings.BaseURL, defaultResendBaseURL)
	if err != nil {
		return nil, err
	}
	configureClient(client, baseURL, settings.Timeout)
	client.SetAuthToken(apiKey)

	return &ResendProvider{
		client: client,
		from:   formatSender(settings.FromName, fromEmail),
	}, nil
}

func (p *ResendProvider) Send(ctx context.Context, msg domain.Message) (*Response, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	var result resendResponse
	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(resendRequest{
			From:    p.from,
			To:      []string{strings.TrimSpace(msg.Recipient)},
			Subject: msg.Subject,
			HTML:    htmlParagraph(msg.Body),
			Text:    msg.Body,
		}).
		SetResult(&result).
		Post("/emails")

	resp, err := toResponse(response, err)
	if err != nil {
		return nil, err
	}
	if id := strings.TrimSpace(result.ID); id != "" {
		resp.MessageID = id
	}
	return resp, nil
}
