package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/notify-relay/internal/domain"
	"github.com/kursadbilgin/notify-relay/internal/provider"
)

type sendResult struct {
	resp *provider.Response
	err  error
}

// sendWithTimeout waits at most maxWait for sender to answer. The call runs
// under a derived context, so adapters that honour ctx stop early; a result
// that arrives after the deadline lands in the buffered channel and is dropped.
func sendWithTimeout(
	ctx context.Context,
	sender provider.Sender,
	msg domain.Message,
	maxWait time.Duration,
) (*provider.Response, error) {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	callCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	done := make(chan sendResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- sendResult{err: &provider.ProviderError{
					Message: fmt.Sprintf("provider panicked: %v", r),
				}}
			}
		}()

		resp, err := sender.Send(callCtx, msg)
		done <- sendResult{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		return res.resp, res.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("no answer within %s: %w", maxWait, provider.ErrProviderTimeout)
	}
}
