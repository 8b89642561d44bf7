package dto

type AdminSecretRequest struct {
	APIURL        *string `json:"api_url,omitempty"`
	APIToken      *string `json:"api_token,omitempty"`
	BillingSecret *string `json:"billing_secret,omitempty"`
}
