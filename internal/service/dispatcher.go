package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/notify-relay/internal/domain"
	"github.com/kursadbilgin/notify-relay/internal/failover"
	"github.com/kursadbilgin/notify-relay/internal/observability"
	"github.com/kursadbilgin/notify-relay/internal/provider"
	"go.uber.org/zap"
)

// DefaultMaxWait bounds a single provider call.
const DefaultMaxWait = 5 * time.Second

// ErrAllProvidersExhausted is recorded on an Outcome when every attempt failed.
var ErrAllProvidersExhausted = errors.New("all providers exhausted")

// AttemptResult describes one provider call made while dispatching a message.
type AttemptResult struct {
	Provider string
	Number   int
	Err      error
	Duration time.Duration
}

// Outcome is the full result of one dispatch.
type Outcome struct {
	DispatchID string
	Delivered  bool
	Provider   string
	MessageID  string
	Attempts   []AttemptResult
	Err        error
	Elapsed    time.Duration
}

type sendOptions struct {
	channel   domain.Channel
	messageID string
}

// SendOption customizes SendNotification.
type SendOption func(*sendOptions)

func WithChannel(channel domain.Channel) SendOption {
	return func(o *sendOptions) {
		o.channel = channel
	}
}

func WithMessageID(id string) SendOption {
	return func(o *sendOptions) {
		o.messageID = strings.TrimSpace(id)
	}
}

// Dispatcher delivers a message through the first provider of the pool that
// accepts it, trying each registered provider at most once per message.
type Dispatcher struct {
	pool    *failover.ProviderPool
	maxWait time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
	newID   func() string
}

func NewDispatcher(pool *failover.ProviderPool, maxWait time.Duration, logger *zap.Logger) (*Dispatcher, error) {
	if pool == nil {
		return nil, fmt.Errorf("provider pool is required")
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		pool:    pool,
		maxWait: maxWait,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// SendNotification reports whether some provider accepted the message. It
// never returns an error: failures are logged and folded into false.
func (d *Dispatcher) SendNotification(
	ctx context.Context,
	recipient string,
	subject string,
	message string,
	opts ...SendOption,
) bool {
	o := sendOptions{channel: domain.ChannelEmail}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	outcome := d.Dispatch(ctx, domain.Message{
		ID:        o.messageID,
		Channel:   o.channel,
		Recipient: recipient,
		Subject:   subject,
		Body:      message,
	})
	return outcome.Delivered
}

// Dispatch runs the attempt loop for msg and returns what happened.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.Message) (outcome Outcome) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := d.now()
	if strings.TrimSpace(msg.ID) == "" {
		msg.ID = d.newID()
	}
	if msg.Channel == "" {
		msg.Channel = domain.ChannelEmail
	}

	outcome.DispatchID = msg.ID
	ctx = observability.WithDispatchID(ctx, msg.ID)
	logger := observability.WithContextLogger(d.logger, ctx).With(
		zap.String("channel", msg.Channel.String()),
	)

	defer func() {
		outcome.Elapsed = d.now().Sub(start)
		d.metrics.ObserveDispatchDuration(outcome.Elapsed)
		d.metrics.IncNotification(msg.Channel.String(), resultLabel(outcome))
	}()

	if err := checkDeliverable(msg); err != nil {
		outcome.Err = err
		logger.Warn("notification rejected", zap.Error(err))
		return outcome
	}

	attempts := d.pool.Len()
	tried := make(map[string]struct{}, attempts)
	current := d.pool.Pick()
	for number := 1; number <= attempts; number++ {
		tried[current.Name()] = struct{}{}
		result, resp := d.attempt(ctx, current, msg, number)
		outcome.Attempts = append(outcome.Attempts, result)

		if result.Err == nil {
			d.pool.RecordSuccess(current)
			outcome.Delivered = true
			outcome.Provider = current.Name()
			if resp != nil {
				outcome.MessageID = resp.MessageID
			}

			logger.Info("notification delivered",
				zap.String("provider", current.Name()),
				zap.Int("attempt", number),
				zap.String("providerMessageId", outcome.MessageID),
				zap.Duration("elapsed", d.now().Sub(start)),
			)
			return outcome
		}

		// The caller gave up; the provider is not to blame.
		if ctxErr := ctx.Err(); ctxErr != nil {
			outcome.Err = ctxErr
			logger.Warn("dispatch canceled",
				zap.String("provider", current.Name()),
				zap.Int("attempt", number),
				zap.Error(ctxErr),
			)
			return outcome
		}

		d.pool.RecordFailure(current)
		logger.Warn("provider attempt failed",
			zap.String("provider", current.Name()),
			zap.Int("attempt", number),
			zap.Int("of", attempts),
			zap.Bool("transient", provider.IsTransient(result.Err)),
			zap.Error(result.Err),
		)

		if number == attempts {
			break
		}
		current = d.pool.PickUntried(tried)
		if current == nil {
			logger.Warn("no untried provider is eligible",
				zap.Int("attempts", number),
				zap.Int("of", attempts),
			)
			break
		}
	}

	outcome.Err = ErrAllProvidersExhausted
	logger.Error("all providers failed",
		zap.Int("attempts", len(outcome.Attempts)),
		zap.Duration("elapsed", d.now().Sub(start)),
	)
	return outcome
}

func (d *Dispatcher) attempt(
	ctx context.Context,
	current *failover.Provider,
	msg domain.Message,
	number int,
) (AttemptResult, *provider.Response) {
	sendStart := d.now()
	resp, err := sendWithTimeout(ctx, current.Sender(), msg, d.maxWait)
	duration := d.now().Sub(sendStart)

	outcome := observability.OutcomeSuccess
	switch {
	case err == nil:
	case provider.IsTimeout(err):
		outcome = observability.OutcomeTimeout
	default:
		outcome = observability.OutcomeFailure
	}
	d.metrics.ObserveProviderAttempt(current.Name(), outcome, duration)

	return AttemptResult{
		Provider: current.Name(),
		Number:   number,
		Err:      err,
		Duration: duration,
	}, resp
}

func checkDeliverable(msg domain.Message) error {
	if msg.Channel.IsValid() && msg.Channel != domain.ChannelEmail {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedChannel, msg.Channel)
	}
	return msg.Validate()
}

func resultLabel(outcome Outcome) string {
	switch {
	case outcome.Delivered:
		return observability.ResultDelivered
	case len(outcome.Attempts) == 0:
		return observability.ResultRejected
	default:
		return observability.ResultUndelivered
	}
}

// PoolObservers returns pool options that log and count breaker transitions.
func PoolObservers(logger *zap.Logger, metrics *observability.Metrics) []failover.Option {
	if logger == nil {
		logger = zap.NewNop()
	}

	return []failover.Option{
		failover.WithOnTrip(func(name string, until time.Time) {
			logger.Warn("provider suspended",
				zap.String("provider", name),
				zap.Time("suspendedUntil", until),
			)
			metrics.IncBreakerTrip(name)
		}),
		failover.WithOnReset(func() {
			logger.Warn("all providers suspended, resetting pool")
			metrics.IncBreakerGlobalReset()
		}),
	}
}
