package main

import (
	"context"
	"flag"
	"time"

	"erpsaas/internal/config"
	"erpsaas/internal/logger"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const retention = 7 * 24 * time.Hour

func main() {
	reset := flag.Bool("reset", false, "Delete every topic and subscription on the emulator first")
	flag.Parse()

	envErr := godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("development", "info")
		boot.Fatal().Msgf("Failed to load config: %v", err)
	}
	logger := logger.New(cfg.Environment, cfg.LogLevel)
	if envErr != nil {
		logger.Warn().Msg("No .env file found, relying on system environment variables")
	}
	logger.Info().Msg("Starting Pub/Sub setup for the local environment")

	if cfg.GCPProjectID == "" {
		logger.Fatal().Msg("GCP_PROJECT_ID is not set in the environment")
	}
	// Only ever run this against the emulator.
	if cfg.PubSubEmulatorHost == "" {
		logger.Fatal().Msg("PUBSUB_EMULATOR_HOST must be set for local environment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID,
		option.WithEndpoint(cfg.PubSubEmulatorHost),
		option.WithoutAuthentication(),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub client: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Msgf("Failed to close pubsub client: %v", err)
		}
	}()

	if *reset {
		resetLocalEmulator(ctx, client, logger)
	}
	ensureEventResources(ctx, client, logger, cfg.PubSubEventsTopic)

	logger.Info().Msg("Pub/Sub setup for local environment complete")
}

func resetLocalEmulator(ctx context.Context, client *pubsub.Client, logger zerolog.Logger) {
	subs := client.Subscriptions(ctx)
	for {
		sub, err := subs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list subscriptions: %v", err)
		}
		logger.Info().Msgf("Deleting subscription: %s", sub.ID())
		if err := sub.Delete(ctx); err != nil {
			logger.Warn().Msgf("Failed to delete subscription %s: %v", sub.ID(), err)
		}
	}

	topics := client.Topics(ctx)
	for {
		topic, err := topics.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list topics: %v", err)
		}
		logger.Info().Msgf("Deleting topic: %s", topic.ID())
		if err := topic.Delete(ctx); err != nil {
			logger.Warn().Msgf("Failed to delete topic %s: %v", topic.ID(), err)
		}
	}
}

// ensureEventResources creates the domain events topic, its dead-letter
// topic and a pull subscription for local consumers.
func ensureEventResources(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID string) {
	dlqTopic := ensureTopic(ctx, client, logger, topicID+"-dlq")
	mainTopic := ensureTopic(ctx, client, logger, topicID)

	ensureSubscription(ctx, client, logger, topicID+"-sub", pubsub.SubscriptionConfig{
		Topic:            mainTopic,
		AckDeadline:      60 * time.Second,
		ExpirationPolicy: 31 * 24 * time.Hour,
		RetryPolicy: &pubsub.RetryPolicy{
			MinimumBackoff: 10 * time.Second,
			MaximumBackoff: 600 * time.Second,
		},
		DeadLetterPolicy: &pubsub.DeadLetterPolicy{
			DeadLetterTopic:     dlqTopic.String(),
			MaxDeliveryAttempts: 5,
		},
	})
	ensureSubscription(ctx, client, logger, topicID+"-dlq-sub", pubsub.SubscriptionConfig{
		Topic:       dlqTopic,
		AckDeadline: 60 * time.Second,
	})
}

func ensureTopic(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID string) *pubsub.Topic {
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		logger.Fatal().Msgf("Failed to check if topic %s exists: %v", topicID, err)
	}
	if exists {
		logger.Info().Msgf("Topic %s already exists", topicID)
		return topic
	}
	logger.Info().Msgf("Creating topic: %s with %v retention", topicID, retention)
	created, err := client.CreateTopicWithConfig(ctx, topicID, &pubsub.TopicConfig{RetentionDuration: retention})
	if err != nil {
		logger.Fatal().Msgf("Failed to create topic %s: %v", topicID, err)
	}
	return created
}

func ensureSubscription(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, subID string, config pubsub.SubscriptionConfig) {
	sub := client.Subscription(subID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		logger.Fatal().Msgf("Failed to check if subscription %s exists: %v", subID, err)
	}
	if !exists {
		logger.Info().Msgf("Creating subscription %s", subID)
		if _, err := client.CreateSubscription(ctx, subID, config); err != nil {
			logger.Fatal().Msgf("Failed to create subscription %s: %v", subID, err)
		}
		return
	}

	existing, err := sub.Config(ctx)
	if err != nil {
		logger.Fatal().Msgf("Failed to get config for subscription %s: %v", subID, err)
	}
	if existing.AckDeadline == config.AckDeadline {
		logger.Info().Msgf("Subscription %s is up to date", subID)
		return
	}
	logger.Info().Msgf("Updating ack deadline of subscription %s", subID)
	if _, err := sub.Update(ctx, pubsub.SubscriptionConfigToUpdate{
		AckDeadline: config.AckDeadline,
		RetryPolicy: config.RetryPolicy,
	}); err != nil {
		logger.Fatal().Msgf("Failed to update subscription %s: %v", subID, err)
	}
}
