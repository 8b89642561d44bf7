package repository

import (
	"context"

	"erpsaas/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UserRepository defines methods for accessing tenant accounts.
type UserRepository interface {
	Create(ctx context.Context, acct *model.TenantAccount) error
	GetByEmail(ctx context.Context, email string) (*model.TenantAccount, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, email string, upd model.ProfileUpdate) (*model.TenantAccount, error)
	SetPasswordHash(ctx context.Context, email, hash string) error
	SetActive(ctx context.Context, email string, active bool) error
	ListCustomers(ctx context.Context) ([]model.Customer, error)
}

type userRepo struct {
	col *mongo.Collection
}

// NewUserRepo creates a new UserRepository.
func NewUserRepo(db *mongo.Database) UserRepository {
	return &userRepo{col: db.Collection(colUsers)}
}

// Create inserts acct and sets its ID. A duplicate email yields a conflict.
func (r *userRepo) Create(ctx context.Context, acct *model.TenantAccount) error {
	res, err := r.col.InsertOne(ctx, acct)
	if err != nil {
		return storeErr("create tenant account", err)
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		acct.ID = id
	}
	return nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.TenantAccount, error) {
	var acct model.TenantAccount
	if err := r.col.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&acct); err != nil {
		return nil, storeErr("get tenant account", err)
	}
	return &acct, nil
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.D{{Key: "email", Value: email}}, options.Count().SetLimit(1))
	if err != nil {
		return false, storeErr("check tenant account", err)
	}
	return n > 0, nil
}

// UpdateProfile sets the non-nil fields of upd and returns the updated account.
func (r *userRepo) UpdateProfile(ctx context.Context, email string, upd model.ProfileUpdate) (*model.TenantAccount, error) {
	set := bson.D{{Key: "updatedAt", Value: now()}}
	for field, v := range map[string]*string{
		"firstName":        upd.FirstName,
		"lastName":         upd.LastName,
		"country":          upd.Country,
		"currency":         upd.Currency,
		"abbr":             upd.Abbr,
		"tax_id":           upd.TaxID,
		"domain":           upd.Domain,
		"date_established": upd.EstablishedDate,
	} {
		if v != nil {
			set = append(set, bson.E{Key: field, Value: *v})
		}
	}
	var acct model.TenantAccount
	err := r.col.FindOneAndUpdate(ctx,
		bson.D{{Key: "email", Value: email}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&acct)
	if err != nil {
		return nil, storeErr("update tenant profile", err)
	}
	return &acct, nil
}

func (r *userRepo) SetPasswordHash(ctx context.Context, email, hash string) error {
	return r.setFields(ctx, "set password", email, bson.D{{Key: "passwordHash", Value: hash}})
}

func (r *userRepo) SetActive(ctx context.Context, email string, active bool) error {
	return r.setFields(ctx, "set account status", email, bson.D{{Key: "isActive", Value: active}})
}

func (r *userRepo) setFields(ctx context.Context, op, email string, set bson.D) error {
	set = append(set, bson.E{Key: "updatedAt", Value: now()})
	res, err := r.col.UpdateOne(ctx, bson.D{{Key: "email", Value: email}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return storeErr(op, err)
	}
	if res.MatchedCount == 0 {
		return storeErr(op, mongo.ErrNoDocuments)
	}
	return nil
}

// ListCustomers returns every account joined with its newest subscription.
func (r *userRepo) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	cur, err := r.col.Aggregate(ctx, customersPipeline())
	if err != nil {
		return nil, storeErr("list customers", err)
	}
	out := []model.Customer{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, storeErr("decode customers", err)
	}
	return out, nil
}

func customersPipeline() mongo.Pipeline {
	latest := func(field string) bson.D {
		return bson.D{{Key: "$ifNull", Value: bson.A{
			bson.D{{Key: "$arrayElemAt", Value: bson.A{"$latestSub." + field, 0}}},
			nil,
		}}}
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "role", Value: bson.D{{Key: "$ne", Value: model.RoleAdmin}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: colSubscriptions},
			{Key: "let", Value: bson.D{{Key: "userEmail", Value: "$email"}}},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$eq", Value: bson.A{"$email", "$$userEmail"}}}}}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
				bson.D{{Key: "$limit", Value: 1}},
			}},
			{Key: "as", Value: "latestSub"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "planName", Value: latest("planName")},
			{Key: "planStatus", Value: latest("status")},
			{Key: "planAmount", Value: latest("amount")},
			{Key: "lastLogin", Value: "$updatedAt"},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "latestSub", Value: 0},
			{Key: "passwordHash", Value: 0},
		}}},
	}
}
