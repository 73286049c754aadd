package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/notify-relay/internal/domain"
)

// ErrUndeliverable tells the consumer that retrying the message is pointless;
// it is dead-lettered instead of requeued.
var ErrUndeliverable = errors.New("message undeliverable")

// Publisher publishes send requests to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg SendMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg SendMessage) error

// Consumer consumes send requests from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// Only email has a delivery path; SMS and WhatsApp have no transport.
var supportedChannels = []domain.Channel{
	domain.ChannelEmail,
}

func isSupportedChannel(channel domain.Channel) bool {
	for _, supported := range supportedChannels {
		if channel == supported {
			return true
		}
	}
	return false
}

// QueueName returns the channel work queue name, e.g. email.
func QueueName(channel domain.Channel) string {
	return strings.ToLower(channel.String())
}

// DLQName returns the dead-letter queue name for a channel, e.g. dlq.email.
func DLQName(channel domain.Channel) string {
	return fmt.Sprintf("dlq.%s", QueueName(channel))
}

func WorkQueueNames() []string {
	queues := make([]string, 0, len(supportedChannels))
	for _, channel := range supportedChannels {
		queues = append(queues, QueueName(channel))
	}
	return queues
}

func DLQNames() []string {
	queues := make([]string, 0, len(supportedChannels))
	for _, channel := range supportedChannels {
		queues = append(queues, DLQName(channel))
	}
	return queues
}
