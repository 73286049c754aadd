package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeAcknowledger struct {
	acked     bool
	nacked    bool
	requeued  bool
	rejected  bool
	rejectErr error
}

func (a *fakeAcknowledger) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	a.rejected = true
	a.requeued = requeue
	return a.rejectErr
}

const validPayload = `{"messageId":"m1","channel":"EMAIL","recipient":"jane@example.com","subject":"Hi","body":"Hello"}`

func TestHandleDelivery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		handlerErr  error
		wantCalled  bool
		wantAck     bool
		wantNack    bool
		wantReject  bool
		wantRequeue bool
	}{
		{name: "success acks", body: validPayload, wantCalled: true, wantAck: true},
		{name: "invalid json rejected", body: `{`, wantReject: true},
		{name: "invalid payload rejected", body: `{"channel":"SMS","recipient":"+1555","body":"x"}`, wantReject: true},
		{name: "undeliverable dead-lettered", body: validPayload, handlerErr: fmt.Errorf("dispatch m1: %w", ErrUndeliverable), wantCalled: true, wantReject: true},
		{name: "infrastructure error requeued", body: validPayload, handlerErr: errors.New("redis down"), wantCalled: true, wantNack: true, wantRequeue: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ack := &fakeAcknowledger{}
			delivery := amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(tt.body)}

			called := false
			consumer := NewRabbitMQConsumer(nil, 1, nil)
			err := consumer.handleDelivery(context.Background(), delivery, func(_ context.Context, msg SendMessage) error {
				called = true
				if msg.MessageID != "m1" {
					t.Errorf("MessageID = %q, want m1", msg.MessageID)
				}
				return tt.handlerErr
			})
			if err != nil {
				t.Fatalf("handleDelivery() error = %v", err)
			}

			if called != tt.wantCalled {
				t.Fatalf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if ack.acked != tt.wantAck || ack.nacked != tt.wantNack || ack.rejected != tt.wantReject {
				t.Fatalf("ack=%v nack=%v reject=%v, want ack=%v nack=%v reject=%v",
					ack.acked, ack.nacked, ack.rejected, tt.wantAck, tt.wantNack, tt.wantReject)
			}
			if ack.requeued != tt.wantRequeue {
				t.Fatalf("requeue = %v, want %v", ack.requeued, tt.wantRequeue)
			}
		})
	}
}

func TestHandleDeliveryRejectFailure(t *testing.T) {
	t.Parallel()

	ack := &fakeAcknowledger{rejectErr: errors.New("channel closed")}
	delivery := amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: []byte(`not json`)}

	consumer := NewRabbitMQConsumer(nil, 1, nil)
	err := consumer.handleDelivery(context.Background(), delivery, func(context.Context, SendMessage) error { return nil })
	if err == nil {
		t.Fatal("expected error when reject fails")
	}
}

func TestConsumeRequiresClient(t *testing.T) {
	t.Parallel()

	consumer := NewRabbitMQConsumer(nil, 1, nil)
	if err := consumer.Consume(context.Background(), "email", func(context.Context, SendMessage) error { return nil }); err == nil {
		t.Fatal("expected error for uninitialized consumer")
	}
}
