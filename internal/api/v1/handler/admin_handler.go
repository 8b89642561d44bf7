package handler

import (
	"net/http"

	"erpsaas/internal/api/v1/dto"
	"erpsaas/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type AdminHandler struct {
	secrets  service.AdminSecretService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewAdminHandler(secrets service.AdminSecretService, v *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{secrets: secrets, validate: v, logger: logger.With().Str("handler", "AdminHandler").Logger()}
}

func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("GET /admin/secrets", authMw(http.HandlerFunc(h.getSecrets)))
	mux.Handle("PUT /admin/secrets", authMw(http.HandlerFunc(h.updateSecrets)))
}

// getSecrets godoc
// @Summary Read the ERP and billing credentials
// @Description Tokens are masked.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AdminSecret
// @Router /admin/secrets [get]
func (h *AdminHandler) getSecrets(w http.ResponseWriter, r *http.Request) {
	sec, err := h.secrets.Get(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// updateSecrets godoc
// @Summary Update the ERP and billing credentials
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdminSecretRequest true "Fields to change"
// @Success 200 {object} model.AdminSecret
// @Failure 400 {object} dto.ErrorResponse
// @Router /admin/secrets [put]
func (h *AdminHandler) updateSecrets(w http.ResponseWriter, r *http.Request) {
	var req dto.AdminSecretRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sec, err := h.secrets.Update(r.Context(), service.AdminSecretInput{
		APIURL:        req.APIURL,
		APIToken:      req.APIToken,
		BillingSecret: req.BillingSecret,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}
