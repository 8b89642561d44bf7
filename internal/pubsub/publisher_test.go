package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"erpsaas/internal/config"

	ps "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisherInvalidProject(t *testing.T) {
	cfg := &config.Config{GCPProjectID: ""}
	if _, err := NewPublisher(context.Background(), cfg); err == nil {
		t.Fatal("expected error when project ID is empty")
	}
}

func TestPublishWithEmulator(t *testing.T) {
	emulator := os.Getenv("PUBSUB_EMULATOR_HOST")
	if emulator == "" {
		t.Skip("PUBSUB_EMULATOR_HOST is not set, skip emulator integration test")
	}

	ctx := context.Background()
	cfg := &config.Config{GCPProjectID: "test-project"}
	// Create publisher
	pub, err := NewPublisher(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create PubSubPublisher: %v", err)
	}

	// Use underlying client to create topic and subscription
	topicName := "test-topic"
	topic, err := pub.client.CreateTopic(ctx, topicName)
	if err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}
	subName := "test-sub"
	sub, err := pub.client.CreateSubscription(ctx, subName, ps.SubscriptionConfig{Topic: topic})
	if err != nil {
		t.Fatalf("failed to create subscription: %v", err)
	}

	// Publish a message
	msgID, err := pub.Publish(ctx, topicName, []byte("hello-emulator"))
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if msgID == "" {
		t.Fatal("expected non-empty message ID")
	}

	// Pull the message
	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	c := make(chan []byte, 1)
	go func() {
		sub.Receive(recvCtx, func(ctx context.Context, m *ps.Message) {
			c <- m.Data
			m.Ack()
			cancel()
		})
	}()

	select {
	case data := <-c:
		if string(data) != "hello-emulator" {
			t.Fatalf("expected message data 'hello-emulator', got '%s'", string(data))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message from emulator subscription")
	}
}

type capturePublisher struct {
	topic   string
	payload []byte
	err     error
}

func (c *capturePublisher) Publish(_ context.Context, topic string, payload []byte) (string, error) {
	c.topic, c.payload = topic, payload
	return "msg-1", c.err
}

func TestEmitWrapsEnvelope(t *testing.T) {
	capt := &capturePublisher{}
	ep := NewEventPublisher(capt, "tenant-events", zerolog.Nop())
	ep.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, ep.Emit(context.Background(), EventTenantRegistered, map[string]string{"email": "jane@acme.io"}))
	assert.Equal(t, "tenant-events", capt.topic)

	var got struct {
		ID         string            `json:"id"`
		Type       string            `json:"type"`
		OccurredAt time.Time         `json:"occurredAt"`
		Data       map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(capt.payload, &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, EventTenantRegistered, got.Type)
	assert.Equal(t, "jane@acme.io", got.Data["email"])
	assert.True(t, got.OccurredAt.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestEmitReturnsPublishError(t *testing.T) {
	ep := NewEventPublisher(&capturePublisher{err: errors.New("unavailable")}, "t", zerolog.Nop())
	assert.Error(t, ep.Emit(context.Background(), EventSubscriptionCreated, nil))
}

func TestNoopPublisher(t *testing.T) {
	ep := NewEventPublisher(NoopPublisher{}, "t", zerolog.Nop())
	assert.NoError(t, ep.Emit(context.Background(), EventSubscriptionCreated, struct{}{}))
}
