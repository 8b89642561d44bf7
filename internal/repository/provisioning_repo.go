package repository

import (
	"context"
	"time"

	"erpsaas/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ProvisioningRepository persists provisioning runs.
type ProvisioningRepository interface {
	Create(ctx context.Context, run *model.ProvisioningRun) error
	Save(ctx context.Context, run *model.ProvisioningRun) error
	GetByID(ctx context.Context, id bson.ObjectID) (*model.ProvisioningRun, error)
	LatestForEmail(ctx context.Context, email string) (*model.ProvisioningRun, error)
	// ListResumable returns partial runs resumed fewer than maxResumes times,
	// least recently touched first.
	ListResumable(ctx context.Context, maxResumes, limit int, olderThan time.Time) ([]model.ProvisioningRun, error)
}

type provisioningRepo struct {
	col *mongo.Collection
}

func NewProvisioningRepo(db *mongo.Database) ProvisioningRepository {
	return &provisioningRepo{col: db.Collection(colProvisioningRuns)}
}

func (r *provisioningRepo) Create(ctx context.Context, run *model.ProvisioningRun) error {
	res, err := r.col.InsertOne(ctx, run)
	if err != nil {
		return storeErr("create provisioning run", err)
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		run.ID = id
	}
	return nil
}

// Save replaces the stored run with run.
func (r *provisioningRepo) Save(ctx context.Context, run *model.ProvisioningRun) error {
	run.UpdatedAt = now()
	res, err := r.col.ReplaceOne(ctx, bson.D{{Key: "_id", Value: run.ID}}, run)
	if err != nil {
		return storeErr("save provisioning run", err)
	}
	if res.MatchedCount == 0 {
		return storeErr("save provisioning run", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *provisioningRepo) GetByID(ctx context.Context, id bson.ObjectID) (*model.ProvisioningRun, error) {
	var run model.ProvisioningRun
	if err := r.col.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&run); err != nil {
		return nil, storeErr("get provisioning run", err)
	}
	return &run, nil
}

func (r *provisioningRepo) LatestForEmail(ctx context.Context, email string) (*model.ProvisioningRun, error) {
	var run model.ProvisioningRun
	err := r.col.FindOne(ctx, bson.D{{Key: "email", Value: email}}, options.FindOne().SetSort(newestFirst)).Decode(&run)
	if err != nil {
		return nil, storeErr("get latest provisioning run", err)
	}
	return &run, nil
}

func (r *provisioningRepo) ListResumable(ctx context.Context, maxResumes, limit int, olderThan time.Time) ([]model.ProvisioningRun, error) {
	cur, err := r.col.Find(ctx,
		bson.D{
			{Key: "status", Value: model.RunStatusPartial},
			{Key: "resumes", Value: bson.D{{Key: "$lt", Value: maxResumes}}},
			{Key: "updatedAt", Value: bson.D{{Key: "$lte", Value: olderThan.UTC()}}},
		},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, storeErr("list resumable runs", err)
	}
	out := []model.ProvisioningRun{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, storeErr("list resumable runs", err)
	}
	return out, nil
}
