package dto

// ProfileUpdateRequest carries the profile fields to change; omitted fields are kept.
type ProfileUpdateRequest struct {
	FirstName       *string `json:"firstName,omitempty"`
	LastName        *string `json:"lastName,omitempty"`
	Country         *string `json:"country,omitempty"`
	Currency        *string `json:"currency,omitempty"`
	Abbr            *string `json:"abbr,omitempty"`
	TaxID           *string `json:"tax_id,omitempty"`
	Domain          *string `json:"domain,omitempty"`
	EstablishedDate *string `json:"date_established,omitempty"`
}

type UserStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}
