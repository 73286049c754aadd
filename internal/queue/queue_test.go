package queue

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kursadbilgin/notify-relay/internal/domain"
)

func TestQueueNames(t *testing.T) {
	if got, want := WorkQueueNames(), []string{"email"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("WorkQueueNames = %v, want %v", got, want)
	}
	if got, want := DLQNames(), []string{"dlq.email"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("DLQNames = %v, want %v", got, want)
	}
}

func TestQueueName(t *testing.T) {
	if queueName := QueueName(domain.ChannelEmail); queueName != "email" {
		t.Fatalf("QueueName = %s, want email", queueName)
	}
	if dlqName := DLQName(domain.ChannelEmail); dlqName != "dlq.email" {
		t.Fatalf("DLQName = %s, want dlq.email", dlqName)
	}
}

func TestSendMessageValidate(t *testing.T) {
	valid := SendMessage{
		MessageID: "m1",
		Channel:   domain.ChannelEmail,
		Recipient: "jane@example.com",
		Subject:   "Proposal accepted",
		Body:      "Your proposal was accepted.",
	}

	tests := []struct {
		name    string
		mutate  func(m *SendMessage)
		wantErr error
	}{
		{name: "valid", mutate: func(*SendMessage) {}},
		{name: "missing message id is fine", mutate: func(m *SendMessage) { m.MessageID = "" }},
		{name: "sms unsupported", mutate: func(m *SendMessage) { m.Channel = domain.ChannelSMS }, wantErr: domain.ErrUnsupportedChannel},
		{name: "unknown channel", mutate: func(m *SendMessage) { m.Channel = "PUSH" }, wantErr: domain.ErrUnsupportedChannel},
		{name: "missing recipient", mutate: func(m *SendMessage) { m.Recipient = " " }, wantErr: domain.ErrValidation},
		{name: "missing subject", mutate: func(m *SendMessage) { m.Subject = "" }, wantErr: domain.ErrValidation},
		{name: "bad email", mutate: func(m *SendMessage) { m.Recipient = "jane" }, wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid
			tt.mutate(&msg)

			err := msg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSendMessageToMessage(t *testing.T) {
	msg := SendMessage{
		MessageID: " m1 ",
		Channel:   domain.ChannelEmail,
		Recipient: " jane@example.com ",
		Subject:   "s",
		Body:      "b",
	}

	want := domain.Message{ID: "m1", Channel: domain.ChannelEmail, Recipient: "jane@example.com", Subject: "s", Body: "b"}
	if got := msg.Message(); got != want {
		t.Fatalf("Message() = %+v, want %+v", got, want)
	}
}
