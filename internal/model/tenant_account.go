package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// TenantAccount is the registered owner of a tenant. Email is the unique key.
type TenantAccount struct {
	ID              bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email           string        `bson:"email" json:"email"`
	Username        string        `bson:"username,omitempty" json:"username,omitempty"`
	CompanyName     string        `bson:"companyName" json:"companyName"`
	FirstName       string        `bson:"firstName" json:"firstName"`
	LastName        string        `bson:"lastName" json:"lastName"`
	PasswordHash    string        `bson:"passwordHash" json:"-"`
	Country         string        `bson:"country,omitempty" json:"country,omitempty"`
	Currency        string        `bson:"currency,omitempty" json:"currency,omitempty"`
	Abbr            string        `bson:"abbr,omitempty" json:"abbr,omitempty"`
	TaxID           string        `bson:"tax_id,omitempty" json:"taxId,omitempty"`
	Domain          string        `bson:"domain,omitempty" json:"domain,omitempty"`
	EstablishedDate string        `bson:"date_established,omitempty" json:"establishedDate,omitempty"`
	Role            string        `bson:"role" json:"role"`
	IsActive        bool          `bson:"isActive" json:"isActive"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName       *string
	LastName        *string
	Country         *string
	Currency        *string
	Abbr            *string
	TaxID           *string
	Domain          *string
	EstablishedDate *string
}

// Customer is a tenant account joined with its most recent subscription.
type Customer struct {
	Email           string     `bson:"email" json:"email"`
	Username        string     `bson:"username,omitempty" json:"username,omitempty"`
	FirstName       string     `bson:"firstName" json:"firstName"`
	LastName        string     `bson:"lastName" json:"lastName"`
	CompanyName     string     `bson:"companyName" json:"companyName"`
	Country         string     `bson:"country,omitempty" json:"country,omitempty"`
	Currency        string     `bson:"currency,omitempty" json:"currency,omitempty"`
	Abbr            string     `bson:"abbr,omitempty" json:"abbr,omitempty"`
	TaxID           string     `bson:"tax_id,omitempty" json:"taxId,omitempty"`
	Domain          string     `bson:"domain,omitempty" json:"domain,omitempty"`
	EstablishedDate string     `bson:"date_established,omitempty" json:"establishedDate,omitempty"`
	IsActive        bool       `bson:"isActive" json:"isActive"`
	CreatedAt       time.Time  `bson:"createdAt" json:"createdAt"`
	LastLogin       *time.Time `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	PlanName        *string    `bson:"planName" json:"planName"`
	PlanStatus      *string    `bson:"planStatus" json:"planStatus"`
	PlanAmount      *int64     `bson:"planAmount" json:"planAmount"`
}
