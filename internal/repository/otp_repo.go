package repository

import (
	"context"
	"time"

	"erpsaas/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// OTPRepository stores password reset codes.
type OTPRepository interface {
	Create(ctx context.Context, tok *model.OTPToken) error
	// LatestValid returns the newest unused, unexpired code for email.
	LatestValid(ctx context.Context, email string, at time.Time) (*model.OTPToken, error)
	MarkUsed(ctx context.Context, id bson.ObjectID) error
	// InvalidateAll marks every outstanding code of email as used.
	InvalidateAll(ctx context.Context, email string) error
}

type otpRepo struct {
	col *mongo.Collection
}

func NewOTPRepo(db *mongo.Database) OTPRepository {
	return &otpRepo{col: db.Collection(colOTPs)}
}

func (r *otpRepo) Create(ctx context.Context, tok *model.OTPToken) error {
	res, err := r.col.InsertOne(ctx, tok)
	if err != nil {
		return storeErr("create otp", err)
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		tok.ID = id
	}
	return nil
}

func (r *otpRepo) LatestValid(ctx context.Context, email string, at time.Time) (*model.OTPToken, error) {
	var tok model.OTPToken
	err := r.col.FindOne(ctx,
		bson.D{
			{Key: "email", Value: email},
			{Key: "used", Value: false},
			{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: at.UTC()}}},
		},
		options.FindOne().SetSort(newestFirst),
	).Decode(&tok)
	if err != nil {
		return nil, storeErr("get otp", err)
	}
	return &tok, nil
}

func (r *otpRepo) MarkUsed(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: bson.D{{Key: "used", Value: true}}}})
	if err != nil {
		return storeErr("mark otp used", err)
	}
	if res.MatchedCount == 0 {
		return storeErr("mark otp used", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *otpRepo) InvalidateAll(ctx context.Context, email string) error {
	_, err := r.col.UpdateMany(ctx,
		bson.D{{Key: "email", Value: email}, {Key: "used", Value: false}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "used", Value: true}}}},
	)
	return storeErr("invalidate otps", err)
}
