package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusUnpaid     = "unpaid"
)

// SubscriptionStatuses lists every status a subscription may be moved to.
var SubscriptionStatuses = []string{
	SubscriptionStatusActive,
	SubscriptionStatusCanceled,
	SubscriptionStatusPastDue,
	SubscriptionStatusIncomplete,
	SubscriptionStatusTrialing,
	SubscriptionStatusUnpaid,
}

// Subscription records a completed checkout. SessionID is globally unique.
type Subscription struct {
	ID                 bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             string        `bson:"userId,omitempty" json:"userId,omitempty"`
	Email              string        `bson:"email" json:"email"`
	PlanName           string        `bson:"planName" json:"planName"`
	PriceID            string        `bson:"priceId,omitempty" json:"priceId,omitempty"`
	Amount             int64         `bson:"amount" json:"amount"`
	Currency           string        `bson:"currency" json:"currency"`
	SessionID          string        `bson:"sessionId" json:"sessionId"`
	Status             string        `bson:"status" json:"status"`
	SubscriptionID     string        `bson:"subscriptionId,omitempty" json:"subscriptionId,omitempty"`
	CurrentPeriodStart time.Time     `bson:"currentPeriodStart" json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time     `bson:"currentPeriodEnd" json:"currentPeriodEnd"`
	CreatedAt          time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// SubscriptionFilter narrows the admin subscription listing. Zero values mean
// "no constraint".
type SubscriptionFilter struct {
	Status        string
	Customer      string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Page          int
	Limit         int
}

// SubscriptionPage is one page of the admin listing.
type SubscriptionPage struct {
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
	Subscriptions []Subscription `json:"subscriptions"`
}
