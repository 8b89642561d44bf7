package repository

import (
	"context"

	"erpsaas/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AdminSecretRepository stores the singleton credentials document.
// Get returns a NotFound error when none has been saved yet.
type AdminSecretRepository interface {
	Get(ctx context.Context) (*model.AdminSecret, error)
	Upsert(ctx context.Context, s *model.AdminSecret) error
}

type adminSecretRepo struct {
	col *mongo.Collection
}

func NewAdminSecretRepo(db *mongo.Database) AdminSecretRepository {
	return &adminSecretRepo{col: db.Collection(colAdminSecrets)}
}

func (r *adminSecretRepo) Get(ctx context.Context) (*model.AdminSecret, error) {
	var s model.AdminSecret
	if err := r.col.FindOne(ctx, bson.D{{Key: "_id", Value: model.AdminSecretKey}}).Decode(&s); err != nil {
		return nil, storeErr("get admin secret", err)
	}
	return &s, nil
}

func (r *adminSecretRepo) Upsert(ctx context.Context, s *model.AdminSecret) error {
	s.Key = model.AdminSecretKey
	s.UpdatedAt = now()
	_, err := r.col.ReplaceOne(ctx, bson.D{{Key: "_id", Value: model.AdminSecretKey}}, s, options.Replace().SetUpsert(true))
	return storeErr("save admin secret", err)
}
