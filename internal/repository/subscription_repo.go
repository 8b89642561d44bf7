package repository

import (
	"context"
	"regexp"
	"time"

	"erpsaas/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	GetBySessionID(ctx context.Context, sessionID string) (*model.Subscription, error)
	ListByEmail(ctx context.Context, email string) ([]model.Subscription, error)
	// Current returns the newest active subscription of email.
	Current(ctx context.Context, email string) (*model.Subscription, error)
	Update(ctx context.Context, id bson.ObjectID, status string, periodEnd *time.Time) (*model.Subscription, error)
	UpdateByProviderID(ctx context.Context, subscriptionID, status string, periodStart, periodEnd *time.Time) (int64, error)
	List(ctx context.Context, f model.SubscriptionFilter) (*model.SubscriptionPage, error)
}

type subscriptionRepo struct {
	col *mongo.Collection
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(db *mongo.Database) SubscriptionRepository {
	return &subscriptionRepo{col: db.Collection(colSubscriptions)}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// Create inserts sub. The unique sessionId index turns a repeated checkout into a conflict.
func (r *subscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	res, err := r.col.InsertOne(ctx, sub)
	if err != nil {
		return storeErr("create subscription", err)
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		sub.ID = id
	}
	return nil
}

func (r *subscriptionRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.Subscription, error) {
	var sub model.Subscription
	if err := r.col.FindOne(ctx, bson.D{{Key: "sessionId", Value: sessionID}}).Decode(&sub); err != nil {
		return nil, storeErr("get subscription by session", err)
	}
	return &sub, nil
}

func (r *subscriptionRepo) ListByEmail(ctx context.Context, email string) ([]model.Subscription, error) {
	return r.find(ctx, "list subscriptions", bson.D{{Key: "email", Value: email}}, options.Find().SetSort(newestFirst))
}

func (r *subscriptionRepo) Current(ctx context.Context, email string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.col.FindOne(ctx,
		bson.D{{Key: "email", Value: email}, {Key: "status", Value: model.SubscriptionStatusActive}},
		options.FindOne().SetSort(newestFirst),
	).Decode(&sub)
	if err != nil {
		return nil, storeErr("get current subscription", err)
	}
	return &sub, nil
}

func (r *subscriptionRepo) Update(ctx context.Context, id bson.ObjectID, status string, periodEnd *time.Time) (*model.Subscription, error) {
	set := bson.D{{Key: "updatedAt", Value: now()}}
	if status != "" {
		set = append(set, bson.E{Key: "status", Value: status})
	}
	if periodEnd != nil {
		set = append(set, bson.E{Key: "currentPeriodEnd", Value: periodEnd.UTC()})
	}
	var sub model.Subscription
	err := r.col.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&sub)
	if err != nil {
		return nil, storeErr("update subscription", err)
	}
	return &sub, nil
}

// UpdateByProviderID applies a provider-side status change and reports how many rows matched.
func (r *subscriptionRepo) UpdateByProviderID(ctx context.Context, subscriptionID, status string, periodStart, periodEnd *time.Time) (int64, error) {
	set := bson.D{{Key: "status", Value: status}, {Key: "updatedAt", Value: now()}}
	if periodStart != nil && !periodStart.IsZero() {
		set = append(set, bson.E{Key: "currentPeriodStart", Value: periodStart.UTC()})
	}
	if periodEnd != nil && !periodEnd.IsZero() {
		set = append(set, bson.E{Key: "currentPeriodEnd", Value: periodEnd.UTC()})
	}
	res, err := r.col.UpdateMany(ctx, bson.D{{Key: "subscriptionId", Value: subscriptionID}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return 0, storeErr("update subscription by provider id", err)
	}
	return res.MatchedCount, nil
}

// List returns one page of subscriptions matching f, newest first, with the total match count.
func (r *subscriptionRepo) List(ctx context.Context, f model.SubscriptionFilter) (*model.SubscriptionPage, error) {
	filter := subscriptionFilterQuery(f)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, storeErr("count subscriptions", err)
	}
	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))
	subs, err := r.find(ctx, "list subscriptions", filter, opts)
	if err != nil {
		return nil, err
	}
	return &model.SubscriptionPage{Total: total, Page: f.Page, Limit: f.Limit, Subscriptions: subs}, nil
}

func (r *subscriptionRepo) find(ctx context.Context, op string, filter bson.D, opts *options.FindOptionsBuilder) ([]model.Subscription, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, storeErr(op, err)
	}
	out := []model.Subscription{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

// subscriptionFilterQuery builds the admin listing filter. Page and Limit are
// expected to be normalized by the caller.
func subscriptionFilterQuery(f model.SubscriptionFilter) bson.D {
	q := bson.D{}
	if f.Status != "" && f.Status != "all" {
		q = append(q, bson.E{Key: "status", Value: f.Status})
	}
	if f.Customer != "" {
		q = append(q, bson.E{Key: "email", Value: bson.Regex{Pattern: regexp.QuoteMeta(f.Customer), Options: "i"}})
	}
	created := bson.D{}
	if f.CreatedAfter != nil {
		created = append(created, bson.E{Key: "$gte", Value: f.CreatedAfter.UTC()})
	}
	if f.CreatedBefore != nil {
		created = append(created, bson.E{Key: "$lte", Value: f.CreatedBefore.UTC()})
	}
	if len(created) > 0 {
		q = append(q, bson.E{Key: "createdAt", Value: created})
	}
	return q
}
