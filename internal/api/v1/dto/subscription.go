package dto

import "time"

type StoreSubscriptionRequest struct {
	UserID             string     `json:"userId,omitempty"`
	Email              string     `json:"email" validate:"required"`
	PlanName           string     `json:"planName" validate:"required"`
	PriceID            string     `json:"priceId,omitempty"`
	Amount             int64      `json:"amount"`
	Currency           string     `json:"currency,omitempty"`
	SessionID          string     `json:"sessionId" validate:"required"`
	Status             string     `json:"status,omitempty"`
	SubscriptionID     string     `json:"subscriptionId,omitempty"`
	CurrentPeriodStart *time.Time `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"currentPeriodEnd,omitempty"`
}

type UpdateSubscriptionRequest struct {
	Status           string     `json:"status,omitempty"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
}

// CreatedResponse reports the id of a newly stored resource.
type CreatedResponse struct {
	Success bool   `json:"success" example:"true"`
	ID      string `json:"id"`
}

// CheckoutResultResponse is returned by the checkout success target.
type CheckoutResultResponse struct {
	Success      bool   `json:"success"`
	Created      bool   `json:"created"`
	Subscription any    `json:"subscription"`
	Message      string `json:"message,omitempty"`
}
