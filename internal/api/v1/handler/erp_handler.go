package handler

import (
	"encoding/json"
	"net/http"

	"erpsaas/internal/api/v1/dto"
	"erpsaas/internal/service"

	"github.com/rs/zerolog"
)

type ERPHandler struct {
	svc    service.ERPService
	logger zerolog.Logger
}

func NewERPHandler(svc service.ERPService, logger zerolog.Logger) *ERPHandler {
	return &ERPHandler{svc: svc, logger: logger.With().Str("handler", "ERPHandler").Logger()}
}

func (h *ERPHandler) RegisterRoutes(mux *http.ServeMux, _ func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /erp/countries", h.countries)
	mux.HandleFunc("GET /erp/currencies", h.currencies)
	mux.HandleFunc("GET /erp/check", h.check)
	mux.HandleFunc("GET /erp/employees", h.employees)
}

func (h *ERPHandler) writeRaw(w http.ResponseWriter, raw json.RawMessage, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

// countries godoc
// @Summary ERP country list
// @Tags erp
// @Produce json
// @Success 200 {object} object
// @Failure 502 {object} dto.ErrorResponse
// @Router /erp/countries [get]
func (h *ERPHandler) countries(w http.ResponseWriter, r *http.Request) {
	raw, err := h.svc.Countries(r.Context())
	h.writeRaw(w, raw, err)
}

// currencies godoc
// @Summary ERP currency list
// @Tags erp
// @Produce json
// @Success 200 {object} object
// @Failure 502 {object} dto.ErrorResponse
// @Router /erp/currencies [get]
func (h *ERPHandler) currencies(w http.ResponseWriter, r *http.Request) {
	raw, err := h.svc.Currencies(r.Context())
	h.writeRaw(w, raw, err)
}

// check godoc
// @Summary Check whether a user or company exists in the ERP
// @Tags erp
// @Produce json
// @Param name query string true "Field: email, username or a company field"
// @Param value query string true "Value to look for"
// @Success 200 {object} dto.ERPCheckResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /erp/check [get]
func (h *ERPHandler) check(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exists, raw, err := h.svc.Check(r.Context(), q.Get("name"), q.Get("value"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ERPCheckResponse{Exists: exists, Data: raw})
}

// employees godoc
// @Summary Employees of an ERP company
// @Tags erp
// @Produce json
// @Param company query string true "Company name"
// @Success 200 {object} object
// @Failure 400 {object} dto.ErrorResponse
// @Router /erp/employees [get]
func (h *ERPHandler) employees(w http.ResponseWriter, r *http.Request) {
	raw, err := h.svc.CompanyEmployees(r.Context(), r.URL.Query().Get("company"))
	h.writeRaw(w, raw, err)
}
