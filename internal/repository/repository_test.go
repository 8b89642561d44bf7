package repository

import (
	"errors"
	"testing"
	"time"

	"erpsaas/internal/apperr"
	"erpsaas/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestStoreErr(t *testing.T) {
	assert.NoError(t, storeErr("op", nil))
	assert.ErrorIs(t, storeErr("op", mongo.ErrNoDocuments), apperr.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}
	assert.ErrorIs(t, storeErr("op", dup), apperr.ErrConflict)

	cause := errors.New("connection reset")
	err := storeErr("create subscription", cause)
	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.ErrorIs(t, err, cause)
}

func TestSubscriptionFilterQueryEmpty(t *testing.T) {
	assert.Empty(t, subscriptionFilterQuery(model.SubscriptionFilter{}))
	assert.Empty(t, subscriptionFilterQuery(model.SubscriptionFilter{Status: "all"}))
}

func TestSubscriptionFilterQuery(t *testing.T) {
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 1, 15, 23, 59, 59, 999_000_000, time.UTC)

	q := subscriptionFilterQuery(model.SubscriptionFilter{
		Status:        model.SubscriptionStatusActive,
		Customer:      "jane+test@acme.io",
		CreatedAfter:  &after,
		CreatedBefore: &before,
	})

	require.Len(t, q, 3)
	assert.Equal(t, bson.E{Key: "status", Value: "active"}, q[0])

	assert.Equal(t, "email", q[1].Key)
	re, ok := q[1].Value.(bson.Regex)
	require.True(t, ok)
	assert.Equal(t, `jane\+test@acme\.io`, re.Pattern)
	assert.Equal(t, "i", re.Options)

	assert.Equal(t, bson.E{Key: "createdAt", Value: bson.D{
		{Key: "$gte", Value: after},
		{Key: "$lte", Value: before},
	}}, q[2])
}

func TestCustomersPipelineJoinsLatestSubscription(t *testing.T) {
	p := customersPipeline()
	require.Len(t, p, 5)
	assert.Equal(t, "$match", p[0][0].Key)
	assert.Equal(t, "$lookup", p[2][0].Key)

	lookup := p[2][0].Value.(bson.D)
	assert.Contains(t, lookup, bson.E{Key: "from", Value: "subscriptions"})
	assert.Contains(t, lookup, bson.E{Key: "as", Value: "latestSub"})

	project := p[4][0].Value.(bson.D)
	assert.Contains(t, project, bson.E{Key: "passwordHash", Value: 0})
}
