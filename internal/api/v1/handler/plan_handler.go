package handler

import (
	"net/http"

	"erpsaas/internal/api/v1/dto"
	"erpsaas/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type PlanHandler struct {
	svc      service.PlanService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewPlanHandler(svc service.PlanService, v *validator.Validate, logger zerolog.Logger) *PlanHandler {
	return &PlanHandler{svc: svc, validate: v, logger: logger.With().Str("handler", "PlanHandler").Logger()}
}

func (h *PlanHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /plans", h.list)
	mux.Handle("POST /plans", authMw(http.HandlerFunc(h.create)))
	mux.Handle("PUT /plans/{productId}", authMw(http.HandlerFunc(h.update)))
	mux.Handle("DELETE /plans/{productId}", authMw(http.HandlerFunc(h.archive)))
}

// list godoc
// @Summary List plans
// @Description Plans are the billing provider's products with their prices and parsed metadata.
// @Tags plans
// @Produce json
// @Success 200 {array} billing.Product
// @Failure 502 {object} dto.ErrorResponse
// @Router /plans [get]
func (h *PlanHandler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// create godoc
// @Summary Create a plan
// @Tags plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatePlanRequest true "Plan"
// @Success 201 {object} model.Plan
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /plans [post]
func (h *PlanHandler) create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePlanRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	plan, err := h.svc.Create(r.Context(), service.PlanInput{
		Name:        req.Name,
		Price:       req.Price,
		Currency:    req.Currency,
		Interval:    req.Interval,
		Features:    req.Features,
		AccessRoles: req.AccessRoles,
		Limits:      req.Limits,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// update godoc
// @Summary Update a plan
// @Description A change of price, currency or interval creates a new provider price.
// @Tags plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product id"
// @Param request body dto.UpdatePlanRequest true "Changes"
// @Success 200 {object} model.Plan
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /plans/{productId} [put]
func (h *PlanHandler) update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdatePlanRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	plan, err := h.svc.Update(r.Context(), r.PathValue("productId"), service.PlanUpdateInput{
		Name:        req.Name,
		Price:       req.Price,
		Currency:    req.Currency,
		Interval:    req.Interval,
		Features:    req.Features,
		AccessRoles: req.AccessRoles,
		Limits:      req.Limits,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// archive godoc
// @Summary Archive a plan
// @Tags plans
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product id"
// @Success 200 {object} dto.MessageResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /plans/{productId} [delete]
func (h *PlanHandler) archive(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Archive(r.Context(), r.PathValue("productId")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Success: true, Message: "Plan archived"})
}
