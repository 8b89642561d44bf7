package model

import "time"

// AdminSecretKey is the fixed _id of the singleton admin secret document.
const AdminSecretKey = "admin"

// AdminSecret parameterizes the ERP and billing adapters at request time.
type AdminSecret struct {
	Key           string    `bson:"_id" json:"-"`
	APIURL        string    `bson:"api_url" json:"api_url"`
	APIToken      string    `bson:"api_token" json:"api_token"`
	BillingSecret string    `bson:"billing_secret" json:"billing_secret"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Masked returns a copy safe to return from read endpoints.
func (s AdminSecret) Masked() AdminSecret {
	s.APIToken = mask(s.APIToken)
	s.BillingSecret = mask(s.BillingSecret)
	return s
}

func mask(v string) string {
	if len(v) <= 4 {
		if v == "" {
			return ""
		}
		return "****"
	}
	return "****" + v[len(v)-4:]
}
