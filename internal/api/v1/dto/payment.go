package dto

type PaymentIntentRequest struct {
	Amount   int64  `json:"amount" validate:"required"`
	Currency string `json:"currency,omitempty"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

type CheckoutSessionRequest struct {
	PriceID  string `json:"priceId" validate:"required"`
	Email    string `json:"email,omitempty"`
	PlanName string `json:"planName,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

type CheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}
