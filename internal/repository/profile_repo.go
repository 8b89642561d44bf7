package repository

import (
	"context"

	"erpsaas/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ProfileCompletionRepository interface {
	Create(ctx context.Context, snap *model.ProfileCompletionSnapshot) error
	GetByEmail(ctx context.Context, email string) (*model.ProfileCompletionSnapshot, error)
}

type profileCompletionRepo struct {
	col *mongo.Collection
}

func NewProfileCompletionRepo(db *mongo.Database) ProfileCompletionRepository {
	return &profileCompletionRepo{col: db.Collection(colProfileCompletes)}
}

func (r *profileCompletionRepo) Create(ctx context.Context, snap *model.ProfileCompletionSnapshot) error {
	res, err := r.col.InsertOne(ctx, snap)
	if err != nil {
		return storeErr("create profile completion", err)
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		snap.ID = id
	}
	return nil
}

// GetByEmail returns the newest snapshot for email.
func (r *profileCompletionRepo) GetByEmail(ctx context.Context, email string) (*model.ProfileCompletionSnapshot, error) {
	var snap model.ProfileCompletionSnapshot
	err := r.col.FindOne(ctx, bson.D{{Key: "email", Value: email}}, options.FindOne().SetSort(newestFirst)).Decode(&snap)
	if err != nil {
		return nil, storeErr("get profile completion", err)
	}
	return &snap, nil
}
