package dto

// RegisterRequest is the tenant registration payload.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required"`
	Password    string `json:"password" validate:"required"`
	CompanyName string `json:"companyName" validate:"required"`
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`

	Username        string `json:"username,omitempty"`
	Country         string `json:"country,omitempty"`
	Currency        string `json:"currency,omitempty"`
	Abbr            string `json:"abbr,omitempty"`
	TaxID           string `json:"tax_id,omitempty"`
	Domain          string `json:"domain,omitempty"`
	EstablishedDate string `json:"date_established,omitempty"`

	Gender        string `json:"gender,omitempty"`
	DateOfBirth   string `json:"dateOfBirth,omitempty"`
	DateOfJoining string `json:"dateOfJoining,omitempty"`
}
