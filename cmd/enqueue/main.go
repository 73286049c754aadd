package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/kursadbilgin/notify-relay/internal/domain"
	"github.com/kursadbilgin/notify-relay/internal/queue"
)

type enqueueConfig struct {
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "enqueue: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	to := fs.String("to", "", "recipient address (required)")
	subject := fs.String("subject", "", "message subject (required for email)")
	body := fs.String("body", "", "message body (required)")
	channel := fs.String("channel", "email", "delivery channel")
	id := fs.String("id", "", "message id (generated when empty)")
	timeout := fs.Duration("timeout", 10*time.Second, "publish timeout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: enqueue --to <address> --subject <subject> --body <body> [options]

Publishes one send request to the relay's work queue. RABBITMQ_URL must be set.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	ch, err := domain.ParseChannelFromString(*channel)
	if err != nil {
		return err
	}

	msg := queue.SendMessage{
		MessageID: *id,
		Channel:   ch,
		Recipient: *to,
		Subject:   *subject,
		Body:      *body,
	}
	if err := msg.Validate(); err != nil {
		fs.Usage()
		return err
	}

	var cfg enqueueConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	broker, err := queue.NewRabbitMQ(cfg.RabbitMQURL, nil)
	if err != nil {
		return err
	}
	publisher := queue.NewRabbitMQPublisher(broker)
	defer publisher.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := publisher.Publish(ctx, queue.QueueName(ch), msg); err != nil {
		return err
	}

	fmt.Printf("queued %s message for %s\n", queue.QueueName(ch), msg.Recipient)
	return nil
}
