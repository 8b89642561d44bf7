package handler

import (
	"net/http"

	"erpsaas/internal/api/v1/dto"
	"erpsaas/internal/apperr"
	"erpsaas/internal/model"
	"erpsaas/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const forgotPasswordMessage = "If the account exists, a reset code has been sent"

type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewUserHandler(userService service.UserService, v *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{userService: userService, validate: v, logger: logger.With().Str("handler", "UserHandler").Logger()}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /users", h.lookupRole)
	mux.HandleFunc("POST /users/forgot-password", h.forgotPassword)
	mux.HandleFunc("POST /users/reset-password", h.resetPassword)
	mux.HandleFunc("GET /users/{email}", h.getProfile)
	mux.HandleFunc("PUT /users/{email}", h.updateProfile)
	mux.HandleFunc("GET /users/{email}/profile-completion", h.profileCompletion)
	mux.Handle("PUT /users/{email}/status", authMw(http.HandlerFunc(h.setStatus)))
	mux.Handle("GET /customers", authMw(http.HandlerFunc(h.customers)))
}

// lookupRole godoc
// @Summary Look up the role of an account
// @Tags users
// @Produce json
// @Param email query string true "Account email"
// @Success 200 {object} service.RoleInfo
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users [get]
func (h *UserHandler) lookupRole(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, h.logger, apperr.Validation("email query parameter is required"))
		return
	}
	info, err := h.userService.LookupRole(r.Context(), email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// getProfile godoc
// @Summary Get a tenant profile
// @Tags users
// @Produce json
// @Param email path string true "Account email"
// @Success 200 {object} model.TenantAccount
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/{email} [get]
func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	acct, err := h.userService.Profile(r.Context(), r.PathValue("email"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// updateProfile godoc
// @Summary Update a tenant profile
// @Description Company fields are mirrored to the ERP on a best-effort basis.
// @Tags users
// @Accept json
// @Produce json
// @Param email path string true "Account email"
// @Param request body dto.ProfileUpdateRequest true "Fields to change"
// @Success 200 {object} model.TenantAccount
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/{email} [put]
func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfileUpdateRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	acct, err := h.userService.UpdateProfile(r.Context(), r.PathValue("email"), model.ProfileUpdate{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Country:         req.Country,
		Currency:        req.Currency,
		Abbr:            req.Abbr,
		TaxID:           req.TaxID,
		Domain:          req.Domain,
		EstablishedDate: req.EstablishedDate,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// setStatus godoc
// @Summary Activate or deactivate an account
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param email path string true "Account email"
// @Param request body dto.UserStatusRequest true "New status"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/{email}/status [put]
func (h *UserHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.UserStatusRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.userService.SetActive(r.Context(), r.PathValue("email"), *req.IsActive); err != nil {
		writeError(w, h.logger, err)
		return
	}
	msg := "Account deactivated"
	if *req.IsActive {
		msg = "Account activated"
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Success: true, Message: msg})
}

// profileCompletion godoc
// @Summary Onboarding completion of a tenant
// @Tags users
// @Produce json
// @Param email path string true "Account email"
// @Success 200 {object} service.ProfileCompletion
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/{email}/profile-completion [get]
func (h *UserHandler) profileCompletion(w http.ResponseWriter, r *http.Request) {
	pc, err := h.userService.ProfileCompletion(r.Context(), r.PathValue("email"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pc)
}

// customers godoc
// @Summary List customers with their latest plan
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Customer
// @Failure 401 {object} dto.ErrorResponse
// @Router /customers [get]
func (h *UserHandler) customers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.userService.Customers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

// forgotPassword godoc
// @Summary Request a password reset code
// @Description Always answers with the same message so account existence is not revealed.
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.ForgotPasswordRequest true "Account email"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /users/forgot-password [post]
func (h *UserHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.userService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Success: true, Message: forgotPasswordMessage})
}

// resetPassword godoc
// @Summary Reset a password with a mailed code
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Code and new password"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /users/reset-password [post]
func (h *UserHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	err := h.userService.ResetPassword(r.Context(), service.ResetPasswordInput{
		Email:       req.Email,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Success: true, Message: "Password updated"})
}
