package provider

import (
	"context"

	"github.com/kursadbilgin/notify-relay/internal/domain"
)

// Sender is the outbound delivery port implemented by every backend adapter.
// A nil error means the backend confirmed acceptance of the message.
type Sender interface {
	Send(ctx context.Context, msg domain.Message) (*Response, error)
}

// Response stores provider call metadata for logging.
type Response struct {
	StatusCode int
	Body       string
	MessageID  string
}
