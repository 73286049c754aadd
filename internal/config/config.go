package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/kursadbilgin/notify-relay/internal/provider"
)

// DefaultProviders is the rotation order used when PROVIDERS is unset.
const DefaultProviders = "resend,brevo"

type Config struct {
	LogLevel          string `env:"LOG_LEVEL,default=info"`
	OpsPort           int    `env:"OPS_PORT,default=8080"`
	RabbitMQURL       string `env:"RABBITMQ_URL,required=true"`
	RedisURL          string `env:"REDIS_URL,required=true"`
	RateLimitPerSec   int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=16"`

	DispatchMaxWaitMS int    `env:"DISPATCH_MAX_WAIT_MS,default=5000"`
	FailureThreshold  int    `env:"FAILURE_THRESHOLD,default=3"`
	CoolDownMS        int    `env:"COOL_DOWN_MS,default=60000"`
	Providers         string `env:"PROVIDERS"`

	ResendAPIKey    string `env:"RESEND_API_KEY"`
	ResendFromEmail string `env:"RESEND_FROM_EMAIL"`
	ResendBaseURL   string `env:"RESEND_BASE_URL,default=https://api.resend.com"`

	BrevoAPIKey    string `env:"BREVO_API_KEY"`
	BrevoFromEmail string `env:"BREVO_FROM_EMAIL"`
	BrevoFromName  string `env:"BREVO_FROM_NAME"`
	BrevoBaseURL   string `env:"BREVO_BASE_URL,default=https://api.brevo.com"`

	SendGridAPIKey    string `env:"SENDGRID_API_KEY"`
	SendGridFromEmail string `env:"SENDGRID_FROM_EMAIL"`
	SendGridFromName  string `env:"SENDGRID_FROM_NAME"`
	SendGridBaseURL   string `env:"SENDGRID_BASE_URL,default=https://api.sendgrid.com"`

	WebhookURL string `env:"WEBHOOK_URL"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if strings.TrimSpace(cfg.Providers) == "" {
		cfg.Providers = DefaultProviders
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.OpsPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.RabbitMQURL, validation.Required),
		validation.Field(&c.RedisURL, validation.Required),
		validation.Field(&c.RateLimitPerSec, validation.Required, validation.Min(1)),
		validation.Field(&c.WorkerConcurrency, validation.Required, validation.Min(1)),
		validation.Field(&c.DispatchMaxWaitMS, validation.Required, validation.Min(1)),
		validation.Field(&c.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.CoolDownMS, validation.Required, validation.Min(1)),
		validation.Field(&c.Providers, validation.Required, validation.By(c.validateProviders)),
		validation.Field(&c.ResendFromEmail, is.EmailFormat),
		validation.Field(&c.ResendBaseURL, is.URL),
		validation.Field(&c.BrevoFromEmail, is.EmailFormat),
		validation.Field(&c.BrevoBaseURL, is.URL),
		validation.Field(&c.SendGridFromEmail, is.EmailFormat),
		validation.Field(&c.SendGridBaseURL, is.URL),
		validation.Field(&c.WebhookURL, is.URL),
	)
}

// validateProviders checks every configured kind is known, listed once and
// has the credentials its adapter needs.
func (c *Config) validateProviders(interface{}) error {
	known := make(map[string]struct{})
	for _, kind := range provider.Kinds() {
		known[kind] = struct{}{}
	}

	seen := make(map[string]struct{})
	for _, name := range c.ProviderNames() {
		if _, ok := known[name]; !ok {
			return validation.NewError("validation_unknown_provider",
				fmt.Sprintf("unknown provider %q (supported: %s)", name, strings.Join(provider.Kinds(), ", ")))
		}
		if _, dup := seen[name]; dup {
			return validation.NewError("validation_duplicate_provider", fmt.Sprintf("provider %q listed twice", name))
		}
		seen[name] = struct{}{}

		settings := c.ProviderSettings(name)
		if name == provider.KindWebhook {
			if strings.TrimSpace(settings.BaseURL) == "" {
				return validation.NewError("validation_missing_credentials", "WEBHOOK_URL is required for the webhook provider")
			}
			continue
		}
		if strings.TrimSpace(settings.APIKey) == "" || strings.TrimSpace(settings.FromEmail) == "" {
			envPrefix := strings.ToUpper(name)
			return validation.NewError("validation_missing_credentials",
				fmt.Sprintf("%s_API_KEY and %s_FROM_EMAIL are required for the %s provider", envPrefix, envPrefix, name))
		}
	}

	if len(seen) == 0 {
		return validation.NewError("validation_no_providers", "at least one provider is required")
	}
	return nil
}

// ProviderNames returns the configured provider kinds in rotation order.
func (c *Config) ProviderNames() []string {
	raw := c.Providers
	if strings.TrimSpace(raw) == "" {
		raw = DefaultProviders
	}

	names := make([]string, 0, 4)
	for _, part := range strings.Split(raw, ",") {
		if name := strings.ToLower(strings.TrimSpace(part)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ProviderSettings maps the env block of one provider kind onto adapter settings.
func (c *Config) ProviderSettings(kind string) provider.Settings {
	settings := provider.Settings{Timeout: c.MaxWait()}

	switch kind {
	case provider.KindResend:
		settings.APIKey = c.ResendAPIKey
		settings.FromEmail = c.ResendFromEmail
		settings.BaseURL = c.ResendBaseURL
	case provider.KindBrevo:
		settings.APIKey = c.BrevoAPIKey
		settings.FromEmail = c.BrevoFromEmail
		settings.FromName = c.BrevoFromName
		settings.BaseURL = c.BrevoBaseURL
	case provider.KindSendGrid:
		settings.APIKey = c.SendGridAPIKey
		settings.FromEmail = c.SendGridFromEmail
		settings.FromName = c.SendGridFromName
		settings.BaseURL = c.SendGridBaseURL
	case provider.KindWebhook:
		settings.BaseURL = c.WebhookURL
	}

	return settings
}

func (c *Config) MaxWait() time.Duration {
	return time.Duration(c.DispatchMaxWaitMS) * time.Millisecond
}

func (c *Config) CoolDown() time.Duration {
	return time.Duration(c.CoolDownMS) * time.Millisecond
}
