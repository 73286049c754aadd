package queue

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/notify-relay/internal/domain"
)

// SendMessage is the broker payload asking the relay to deliver one notification.
type SendMessage struct {
	MessageID string         `json:"messageId,omitempty"`
	Channel   domain.Channel `json:"channel"`
	Recipient string         `json:"recipient"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
}

// Message converts the payload to the dispatcher's message type.
func (m SendMessage) Message() domain.Message {
	return domain.Message{
		ID:        strings.TrimSpace(m.MessageID),
		Channel:   m.Channel,
		Recipient: strings.TrimSpace(m.Recipient),
		Subject:   m.Subject,
		Body:      m.Body,
	}
}

func (m SendMessage) Validate() error {
	if !isSupportedChannel(m.Channel) {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedChannel, m.Channel)
	}

	msg := m.Message()
	return msg.Validate()
}
