package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/notify-relay/internal/domain"
	"github.com/kursadbilgin/notify-relay/internal/observability"
	"github.com/kursadbilgin/notify-relay/internal/queue"
	"github.com/kursadbilgin/notify-relay/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// MessageDispatcher is the part of Dispatcher the worker depends on.
type MessageDispatcher interface {
	Dispatch(ctx context.Context, msg domain.Message) Outcome
}

var _ MessageDispatcher = (*Dispatcher)(nil)

// WorkerService feeds queued send requests to the dispatcher.
type WorkerService struct {
	consumer    queue.Consumer
	dispatcher  MessageDispatcher
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
}

func NewWorkerService(
	consumer queue.Consumer,
	dispatcher MessageDispatcher,
	rateLimiter ratelimit.RateLimiter,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		consumer:    consumer,
		dispatcher:  dispatcher,
		rateLimiter: rateLimiter,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes the channel queues and dispatches messages until ctx is canceled.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	queueNames := queue.WorkQueueNames()
	if len(queueNames) == 0 {
		return fmt.Errorf("no work queues configured")
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		queueName := queueNames[i%len(queueNames)]
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)

			err := s.consumer.Consume(groupCtx, queueName, s.processMessage)
			if err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", queueName),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)
			return nil
		})
	}

	return g.Wait()
}

// processMessage returns nil when the message was delivered, an error wrapping
// queue.ErrUndeliverable when it should be dead-lettered, and any other error
// when it should be requeued.
func (s *WorkerService) processMessage(ctx context.Context, msg queue.SendMessage) error {
	channelName := strings.ToLower(msg.Channel.String())
	s.metrics.IncWorkerInFlight(channelName)
	defer s.metrics.DecWorkerInFlight(channelName)

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, channelName); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	outcome := s.dispatcher.Dispatch(ctx, msg.Message())
	if outcome.Delivered {
		return nil
	}

	// Shutting down mid-dispatch; let another replica take it.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dispatch %s interrupted: %w", outcome.DispatchID, err)
	}

	return fmt.Errorf("%w: dispatch %s after %d attempts: %v",
		queue.ErrUndeliverable, outcome.DispatchID, len(outcome.Attempts), outcome.Err)
}
