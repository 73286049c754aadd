package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-relay/internal/domain"
)

type webhookRequest struct {
	ID      string `json:"id,omitempty"`
	To      string `json:"to"`
	Channel string `json:"channel"`
	Subject string `json:"subject,omitempty"`
	Content string `json:"content"`
}

// WebhookProvider posts messages as JSON to a generic HTTP endpoint, e.g. an
// internal relay or webhook.site during development.
type WebhookProvider struct {
	client   *resty.Client
	endpoint string
}

// NewWebhookProvider posts to endpoint with a per-request timeout; zero keeps
// the shared default.
func NewWebhookProvider(endpoint string, timeout time.Duration) (*WebhookProvider, error) {
	return NewWebhookProviderWithClient(endpoint, timeout, resty.New())
}

func NewWebhookProviderWithClient(endpoint string, timeout time.Duration, client *resty.Client) (*WebhookProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	configureClient(client, "", timeout)

	return &WebhookProvider{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (p *WebhookProvider) Send(ctx context.Context, msg domain.Message) (*Response, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(webhookRequest{
			ID:      msg.ID,
			To:      msg.Recipient,
			Channel: strings.ToLower(msg.Channel.String()),
			Subject: msg.Subject,
			Content: msg.Body,
		}).
		Post(p.endpoint)

	return toResponse(response, err)
}
