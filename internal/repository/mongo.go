package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"erpsaas/internal/apperr"
	"erpsaas/internal/config"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	colUsers            = "users"
	colSubscriptions    = "subscriptions"
	colProfileCompletes = "profilecompletes"
	colOTPs             = "otps"
	colPlans            = "plans"
	colAdminSecrets     = "adminsecrets"
	colProvisioningRuns = "provisioning_runs"
)

var ErrFailedToConnect = errors.New("failed to connect to mongo")

// Connect dials MongoDB, retrying up to cfg.MongoRetryAttempts times.
func Connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*mongo.Client, error) {
	attempts := max(cfg.MongoRetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.MongoURI).
				SetConnectTimeout(cfg.MongoConnectTimeout).
				SetRetryWrites(true).
				SetRetryReads(true),
		)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, cfg.MongoConnectTimeout)
			err = client.Ping(pingCtx, nil)
			cancel()
			if err == nil {
				return client, nil
			}
			_ = client.Disconnect(context.Background())
		}
		lastErr = err
		logger.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", attempts).Msg("MongoDB connection attempt failed")

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(ErrFailedToConnect, ctx.Err())
			case <-time.After(cfg.MongoRetryInterval):
			}
		}
	}
	return nil, errors.Join(ErrFailedToConnect, lastErr)
}

// Healthcheck returns a ping function for the /healthz endpoint.
func Healthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx, nil); err != nil {
			return fmt.Errorf("mongo healthcheck failed: %w", err)
		}
		return nil
	}
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "subscriptionId", Value: 1}}},
		},
		colProfileCompletes: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		colOTPs: {
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "createdAt", Value: -1}}},
			// expired codes are removed by the server
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		colPlans: {
			{Keys: bson.D{{Key: "productId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colProvisioningRuns: {
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: 1}}},
		},
	}
	for col, models := range indexes {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}

// storeErr maps driver errors onto the application error kinds.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound("%s: no matching document", op)
	case mongo.IsDuplicateKeyError(err):
		return apperr.Conflict("%s: duplicate key", op)
	default:
		return apperr.Internal(op, err)
	}
}

func now() time.Time {
	return time.Now().UTC()
}
