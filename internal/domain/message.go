package domain

import (
	"fmt"
	"strings"

	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Channel represents the delivery channel.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// MaxBodyLength caps the message body (in characters).
const MaxBodyLength = 100000

// Message is a single outbound notification handed to the dispatcher.
type Message struct {
	ID        string
	Channel   Channel
	Recipient string
	Subject   string
	Body      string
}

func (m *Message) Validate() error {
	if strings.TrimSpace(m.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if m.Body == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}
	if !m.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, m.Channel)
	}

	if m.Channel == ChannelEmail {
		if strings.TrimSpace(m.Subject) == "" {
			return fmt.Errorf("%w: subject is required", ErrValidation)
		}
		if err := is.EmailFormat.Validate(strings.TrimSpace(m.Recipient)); err != nil {
			return fmt.Errorf("%w: invalid email recipient %q", ErrValidation, m.Recipient)
		}
	}

	if bodyLen := len([]rune(m.Body)); bodyLen > MaxBodyLength {
		return fmt.Errorf("%w: body exceeds %d characters (got %d)", ErrValidation, MaxBodyLength, bodyLen)
	}

	return nil
}
