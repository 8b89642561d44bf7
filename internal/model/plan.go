package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// PlanLimits caps per-resource usage. -1 means unlimited.
type PlanLimits struct {
	Users      int `bson:"users" json:"users" validate:"gte=-1"`
	Quotations int `bson:"quotations" json:"quotations" validate:"gte=-1"`
	Invoices   int `bson:"invoices" json:"invoices" validate:"gte=-1"`
	Suppliers  int `bson:"suppliers" json:"suppliers" validate:"gte=-1"`
	Customers  int `bson:"customers" json:"customers" validate:"gte=-1"`
}

// Plan mirrors a billing product locally. ProductID (assigned by the billing
// provider) is the authoritative identifier.
type Plan struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID   string        `bson:"productId" json:"productId"`
	PriceID     string        `bson:"priceId" json:"priceId"`
	Name        string        `bson:"name" json:"name"`
	Price       float64       `bson:"price" json:"price"`
	Currency    string        `bson:"currency" json:"currency"`
	Interval    string        `bson:"interval" json:"interval"`
	Features    []string      `bson:"features" json:"features"`
	AccessRoles []string      `bson:"accessRoles" json:"accessRoles"`
	Limits      PlanLimits    `bson:"limits" json:"limits"`
	Active      bool          `bson:"active" json:"active"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}
