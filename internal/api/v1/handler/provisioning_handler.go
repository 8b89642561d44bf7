package handler

import (
	"net/http"

	"erpsaas/internal/api/v1/dto"
	"erpsaas/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type ProvisioningHandler struct {
	svc      service.ProvisioningService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewProvisioningHandler(svc service.ProvisioningService, v *validator.Validate, logger zerolog.Logger) *ProvisioningHandler {
	return &ProvisioningHandler{svc: svc, validate: v, logger: logger.With().Str("handler", "ProvisioningHandler").Logger()}
}

// RegisterRoutes mounts tenant registration and provisioning routes
func (h *ProvisioningHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /register", h.register)
	mux.HandleFunc("GET /provisioning/{email}", h.latestRun)
	mux.Handle("POST /provisioning/runs/{id}/resume", authMw(http.HandlerFunc(h.resume)))
}

// register godoc
// @Summary Register a tenant
// @Description Creates the tenant account and provisions company, user and employee records in the ERP. Downstream step failures are reported in the result with status partial.
// @Tags tenants
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 201 {object} service.ProvisioningResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /register [post]
func (h *ProvisioningHandler) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		CompanyName:     req.CompanyName,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Username:        req.Username,
		Country:         req.Country,
		Currency:        req.Currency,
		Abbr:            req.Abbr,
		TaxID:           req.TaxID,
		Domain:          req.Domain,
		EstablishedDate: req.EstablishedDate,
		Gender:          req.Gender,
		DateOfBirth:     req.DateOfBirth,
		DateOfJoining:   req.DateOfJoining,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// latestRun godoc
// @Summary Latest provisioning run of a tenant
// @Tags tenants
// @Produce json
// @Param email path string true "Tenant email"
// @Success 200 {object} model.ProvisioningRun
// @Failure 404 {object} dto.ErrorResponse
// @Router /provisioning/{email} [get]
func (h *ProvisioningHandler) latestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.LatestRun(r.Context(), r.PathValue("email"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// resume godoc
// @Summary Resume a provisioning run
// @Description Re-runs the failed and skipped steps of a run.
// @Tags tenants
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run id"
// @Success 200 {object} service.ProvisioningResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /provisioning/runs/{id}/resume [post]
func (h *ProvisioningHandler) resume(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Resume(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
