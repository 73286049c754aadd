package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	dlxExchangeName       = "notify.dlx"
	initialReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second
	connectTimeout        = 15 * time.Second
)

var errConnectionClosed = errors.New("rabbitmq connection is closed")

// queueTopology is one work queue and the dead-letter queue its rejected
// deliveries are routed to through notify.dlx.
type queueTopology struct {
	Work       string
	DeadLetter string
	RoutingKey string
}

func relayTopology() []queueTopology {
	topology := make([]queueTopology, 0, len(supportedChannels))
	for _, channel := range supportedChannels {
		topology = append(topology, queueTopology{
			Work:       QueueName(channel),
			DeadLetter: DLQName(channel),
			RoutingKey: strings.ToLower(channel.String()),
		})
	}
	return topology
}

// declarer is the part of *amqp.Channel needed to declare topology.
type declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

func declareTopology(d declarer, topology []queueTopology) error {
	if err := d.ExchangeDeclare(dlxExchangeName, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlx exchange: %w", err)
	}

	for _, q := range topology {
		if _, err := d.QueueDeclare(q.DeadLetter, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dlq %q: %w", q.DeadLetter, err)
		}
		if err := d.QueueBind(q.DeadLetter, q.RoutingKey, dlxExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind dlq %q: %w", q.DeadLetter, err)
		}

		args := amqp.Table{
			"x-dead-letter-exchange":    dlxExchangeName,
			"x-dead-letter-routing-key": q.RoutingKey,
		}
		if _, err := d.QueueDeclare(q.Work, true, false, false, false, args); err != nil {
			return fmt.Errorf("failed to declare queue %q: %w", q.Work, err)
		}
	}
	return nil
}

// connection is the part of *amqp.Connection the broker uses.
type connection interface {
	Channel() (*amqp.Channel, error)
	IsClosed() bool
	Close() error
}

func dialAMQP(url string) (connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// declareOnConnection opens a short-lived channel, declares the relay topology
// on it and closes it again.
func declareOnConnection(conn connection, topology []queueTopology) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open topology channel: %w", err)
	}
	defer ch.Close() //nolint:errcheck

	return declareTopology(ch, topology)
}

// RabbitMQ holds one broker connection for the relay. The email and dlq.email
// queues are declared each time a connection is established, so channels handed
// to the publisher and consumer can be used as-is.
type RabbitMQ struct {
	url      string
	logger   *zap.Logger
	topology []queueTopology

	dial     func(url string) (connection, error)
	setup    func(conn connection, topology []queueTopology) error
	minDelay time.Duration
	maxDelay time.Duration

	mu   sync.RWMutex
	conn connection

	// dialMu serializes reconnects; readers of conn never wait on it.
	dialMu sync.Mutex
}

// NewRabbitMQ connects to url and declares the relay topology, retrying with
// backoff for up to 15 seconds.
func NewRabbitMQ(url string, logger *zap.Logger) (*RabbitMQ, error) {
	r, err := newRabbitMQ(url, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if _, err := r.connect(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func newRabbitMQ(url string, logger *zap.Logger) (*RabbitMQ, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RabbitMQ{
		url:      url,
		logger:   logger,
		topology: relayTopology(),
		dial:     dialAMQP,
		setup:    declareOnConnection,
		minDelay: initialReconnectDelay,
		maxDelay: maxReconnectDelay,
	}, nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}
	return conn.Close()
}

// Ping opens and closes a channel on the live connection. It does not dial.
func (r *RabbitMQ) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conn := r.current()
	if conn == nil {
		return errConnectionClosed
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel check failed: %w", err)
	}
	return ch.Close()
}

func (r *RabbitMQ) current() connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.conn == nil || r.conn.IsClosed() {
		return nil
	}
	return r.conn
}

// channel returns a fresh channel, reconnecting once if the current connection
// refuses to open one.
func (r *RabbitMQ) channel(ctx context.Context) (*amqp.Channel, error) {
	conn, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err == nil {
		return ch, nil
	}

	r.logger.Warn("rabbitmq channel open failed, reconnecting", zap.Error(err))
	r.discard(conn)

	conn, err = r.connect(ctx)
	if err != nil {
		return nil, err
	}
	ch, err = conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create rabbitmq channel after reconnect: %w", err)
	}
	return ch, nil
}

// discard drops conn if it is still the current connection.
func (r *RabbitMQ) discard(conn connection) {
	r.mu.Lock()
	if r.conn != conn {
		r.mu.Unlock()
		return
	}
	r.conn = nil
	r.mu.Unlock()

	if !conn.IsClosed() {
		_ = conn.Close()
	}
}

// connect returns the live connection, dialing with exponential backoff when
// there is none. Topology is declared once per new connection.
func (r *RabbitMQ) connect(ctx context.Context) (connection, error) {
	if conn := r.current(); conn != nil {
		return conn, nil
	}

	r.dialMu.Lock()
	defer r.dialMu.Unlock()

	if conn := r.current(); conn != nil {
		return conn, nil
	}

	delay := r.minDelay
	for attempt := 1; ; attempt++ {
		conn, err := r.open()
		if err == nil {
			r.mu.Lock()
			r.conn = conn
			r.mu.Unlock()

			r.logger.Info("rabbitmq connected",
				zap.Int("attempt", attempt),
				zap.Int("queues", len(r.topology)),
			)
			return conn, nil
		}

		r.logger.Warn("rabbitmq connect failed",
			zap.Int("attempt", attempt),
			zap.Duration("retryIn", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq reconnect canceled: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > r.maxDelay {
			delay = r.maxDelay
		}
	}
}

func (r *RabbitMQ) open() (connection, error) {
	conn, err := r.dial(r.url)
	if err != nil {
		return nil, err
	}

	if err := r.setup(conn, r.topology); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
