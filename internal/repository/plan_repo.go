package repository

import (
	"context"

	"erpsaas/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// PlanRepository keeps the local mirror of billing products.
type PlanRepository interface {
	Create(ctx context.Context, p *model.Plan) error
	GetByProductID(ctx context.Context, productID string) (*model.Plan, error)
	Update(ctx context.Context, p *model.Plan) error
	SetActive(ctx context.Context, productID string, active bool) error
	List(ctx context.Context) ([]model.Plan, error)
}

type planRepo struct {
	col *mongo.Collection
}

func NewPlanRepo(db *mongo.Database) PlanRepository {
	return &planRepo{col: db.Collection(colPlans)}
}

func (r *planRepo) Create(ctx context.Context, p *model.Plan) error {
	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		return storeErr("create plan", err)
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		p.ID = id
	}
	return nil
}

func (r *planRepo) GetByProductID(ctx context.Context, productID string) (*model.Plan, error) {
	var p model.Plan
	if err := r.col.FindOne(ctx, bson.D{{Key: "productId", Value: productID}}).Decode(&p); err != nil {
		return nil, storeErr("get plan", err)
	}
	return &p, nil
}

// Update replaces the mutable fields of the plan identified by p.ProductID.
func (r *planRepo) Update(ctx context.Context, p *model.Plan) error {
	p.UpdatedAt = now()
	res, err := r.col.UpdateOne(ctx,
		bson.D{{Key: "productId", Value: p.ProductID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "name", Value: p.Name},
			{Key: "priceId", Value: p.PriceID},
			{Key: "price", Value: p.Price},
			{Key: "currency", Value: p.Currency},
			{Key: "interval", Value: p.Interval},
			{Key: "features", Value: p.Features},
			{Key: "accessRoles", Value: p.AccessRoles},
			{Key: "limits", Value: p.Limits},
			{Key: "updatedAt", Value: p.UpdatedAt},
		}}},
	)
	if err != nil {
		return storeErr("update plan", err)
	}
	if res.MatchedCount == 0 {
		return storeErr("update plan", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *planRepo) SetActive(ctx context.Context, productID string, active bool) error {
	res, err := r.col.UpdateOne(ctx,
		bson.D{{Key: "productId", Value: productID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "active", Value: active}, {Key: "updatedAt", Value: now()}}}},
	)
	if err != nil {
		return storeErr("set plan active", err)
	}
	if res.MatchedCount == 0 {
		return storeErr("set plan active", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *planRepo) List(ctx context.Context) ([]model.Plan, error) {
	cur, err := r.col.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "price", Value: 1}}))
	if err != nil {
		return nil, storeErr("list plans", err)
	}
	out := []model.Plan{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, storeErr("list plans", err)
	}
	return out, nil
}
