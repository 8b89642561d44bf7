package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"erpsaas/internal/config"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Event types published to the events topic.
const (
	EventTenantRegistered    = "tenant.registered"
	EventSubscriptionCreated = "subscription.created"
)

// Publisher defines an interface for publishing messages.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// Event is the envelope written to the events topic.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// PubSubPublisher is an implementation of Publisher using Google Pub/Sub.
type PubSubPublisher struct {
	client *pubsub.Client
}

// NewPublisher creates a new PubSubPublisher using the GCP project from config.
func NewPublisher(ctx context.Context, cfg *config.Config) (*PubSubPublisher, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("failed to create Pub/Sub client: GCP project ID is empty")
	}
	var opts []option.ClientOption
	if cfg.GCPCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCPCredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &PubSubPublisher{client: client}, nil
}

// Publish sends the payload to the given Pub/Sub topic and returns the message ID.
func (p *PubSubPublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	t := p.client.Topic(topic)
	result := t.Publish(ctx, &pubsub.Message{Data: payload})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish message to topic %s: %w", topic, err)
	}
	return id, nil
}

func (p *PubSubPublisher) Close() error {
	return p.client.Close()
}

// NoopPublisher drops every message. Used when no GCP project is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) (string, error) { return "", nil }

// EventPublisher wraps a Publisher with the event envelope and a fixed topic.
// Publishing is best-effort: failures are logged and returned, never retried.
type EventPublisher struct {
	pub    Publisher
	topic  string
	logger zerolog.Logger
	now    func() time.Time
}

func NewEventPublisher(pub Publisher, topic string, logger zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		pub:    pub,
		topic:  topic,
		logger: logger.With().Str("service", "EventPublisher").Logger(),
		now:    time.Now,
	}
}

// Emit publishes an event of the given type with data as its payload.
func (e *EventPublisher) Emit(ctx context.Context, eventType string, data any) error {
	ev := Event{ID: uuid.NewString(), Type: eventType, OccurredAt: e.now().UTC(), Data: data}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	msgID, err := e.pub.Publish(ctx, e.topic, payload)
	if err != nil {
		e.logger.Warn().Err(err).Str("event_type", eventType).Str("event_id", ev.ID).Msg("Failed to publish event")
		return err
	}
	e.logger.Debug().Str("event_type", eventType).Str("event_id", ev.ID).Str("message_id", msgID).Msg("Event published")
	return nil
}
