package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/notify-relay/internal/domain"
	"github.com/kursadbilgin/notify-relay/internal/provider"
)

func TestSendWithTimeout(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		sendFn      func(ctx context.Context, msg domain.Message) (*provider.Response, error)
		wantErr     error
		wantTimeout bool
	}{
		{
			name: "returns adapter response",
			sendFn: func(context.Context, domain.Message) (*provider.Response, error) {
				return &provider.Response{StatusCode: 202}, nil
			},
		},
		{
			name: "returns adapter error",
			sendFn: func(context.Context, domain.Message) (*provider.Response, error) {
				return nil, errProviderDown
			},
			wantErr: errProviderDown,
		},
		{
			name: "stops waiting after max wait",
			sendFn: func(context.Context, domain.Message) (*provider.Response, error) {
				time.Sleep(500 * time.Millisecond)
				return &provider.Response{}, nil
			},
			wantTimeout: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			start := time.Now()
			resp, err := sendWithTimeout(context.Background(), &fakeSender{sendFn: tc.sendFn}, domain.Message{}, 30*time.Millisecond)

			switch {
			case tc.wantTimeout:
				if !errors.Is(err, provider.ErrProviderTimeout) {
					t.Fatalf("err = %v, want ErrProviderTimeout", err)
				}
				if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
					t.Fatalf("returned after %s, want about 30ms", elapsed)
				}
			case tc.wantErr != nil:
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if resp == nil || resp.StatusCode != 202 {
					t.Fatalf("resp = %+v, want status 202", resp)
				}
			}
		})
	}
}

func TestSendWithTimeoutCancelsAdapterContext(t *testing.T) {
	t.Parallel()

	observed := make(chan error, 1)
	sender := &fakeSender{sendFn: func(ctx context.Context, _ domain.Message) (*provider.Response, error) {
		<-ctx.Done()
		observed <- ctx.Err()
		return nil, ctx.Err()
	}}

	_, err := sendWithTimeout(context.Background(), sender, domain.Message{}, 20*time.Millisecond)
	if !provider.IsTimeout(err) {
		t.Fatalf("IsTimeout(%v) = false, want true", err)
	}

	select {
	case got := <-observed:
		if !errors.Is(got, context.DeadlineExceeded) {
			t.Fatalf("adapter ctx err = %v, want DeadlineExceeded", got)
		}
	case <-time.After(time.Second):
		t.Fatal("adapter context was not canceled")
	}
}

func TestSendWithTimeoutRecoversPanic(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{sendFn: func(context.Context, domain.Message) (*provider.Response, error) {
		panic("nil map write")
	}}

	_, err := sendWithTimeout(context.Background(), sender, domain.Message{}, time.Second)

	var providerErr *provider.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("err = %T (%v), want *ProviderError", err, err)
	}
}

func TestSendWithTimeoutParentCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &fakeSender{sendFn: func(ctx context.Context, _ domain.Message) (*provider.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	_, err := sendWithTimeout(ctx, sender, domain.Message{}, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
