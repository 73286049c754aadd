package provider

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Backend kinds accepted by New.
const (
	KindResend   = "resend"
	KindBrevo    = "brevo"
	KindSendGrid = "sendgrid"
	KindWebhook  = "webhook"
)

// Settings carries credentials and endpoint details for one configured backend.
type Settings struct {
	APIKey    string
	FromEmail string
	FromName  string
	// BaseURL overrides the vendor API root; for webhooks it is the full endpoint.
	BaseURL string
	Timeout time.Duration
}

// Factory builds a Sender from settings.
type Factory func(settings Settings) (Sender, error)

var factories = map[string]Factory{
	KindResend: func(settings Settings) (Sender, error) {
		return NewResendProvider(settings)
	},
	KindBrevo: func(settings Settings) (Sender, error) {
		return NewBrevoProvider(settings)
	},
	KindSendGrid: func(settings Settings) (Sender, error) {
		return NewSendGridProvider(settings)
	},
	KindWebhook: func(settings Settings) (Sender, error) {
		return NewWebhookProvider(settings.BaseURL, settings.Timeout)
	},
}

// New creates a Sender for the named backend kind.
func New(kind string, settings Settings) (Sender, error) {
	normalized := strings.ToLower(strings.TrimSpace(kind))
	factory, ok := factories[normalized]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", kind)
	}

	sender, err := factory(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s provider: %w", normalized, err)
	}
	return sender, nil
}

// Kinds returns the supported backend kinds in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
