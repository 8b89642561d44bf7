package dto

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error"`
}

// MessageResponse acknowledges requests that return no resource.
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message"`
}
