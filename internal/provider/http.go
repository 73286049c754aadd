package provider

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultRequestTimeout = 10 * time.Second

var messageIDHeaders = []string{
	"X-Message-Id",
	"X-Message-ID",
	"X-Request-ID",
	"X-Request-Id",
	"X-Correlation-ID",
	"X-Correlation-Id",
}

func resolveBaseURL(configured string, fallback string) (string, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(configured), "/")
	if baseURL == "" {
		baseURL = fallback
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	return baseURL, nil
}

// configureClient applies the shared transport policy. Retries stay disabled:
// fallback across providers belongs to the dispatcher.
func configureClient(client *resty.Client, baseURL string, timeout time.Duration) {
	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	switch {
	case timeout > 0:
		client.SetTimeout(timeout)
	case client.GetClient().Timeout == 0:
		client.SetTimeout(defaultRequestTimeout)
	}
	client.SetRetryCount(0)
}

func toResponse(response *resty.Response, err error) (*Response, error) {
	if err != nil {
		return nil, &ProviderError{
			Message:   "provider request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "provider returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Response{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  providerMessageID(response),
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func providerMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range messageIDHeaders {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}

// htmlParagraph wraps a plain body for backends that want an HTML part.
// Bodies that already carry markup are passed through untouched.
func htmlParagraph(body string) string {
	if strings.Contains(body, "<") && strings.Contains(body, ">") {
		return body
	}
	return "<p>" + html.EscapeString(body) + "</p>"
}

func formatSender(name string, email string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}
