package handler

import (
	"io"
	"net/http"

	"erpsaas/internal/api/v1/dto"
	"erpsaas/internal/apperr"
	"erpsaas/internal/model"
	"erpsaas/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBytes = 65536
)

// SubscriptionHandler handles subscription-related endpoints.
type SubscriptionHandler struct {
	subSvc         service.SubscriptionService
	validate       *validator.Validate
	webhookEnabled bool
	logger         zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler. The webhook route
// is only mounted when webhookEnabled is set.
func NewSubscriptionHandler(subSvc service.SubscriptionService, v *validator.Validate, webhookEnabled bool, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subSvc:         subSvc,
		validate:       v,
		webhookEnabled: webhookEnabled,
		logger:         logger.With().Str("handler", "SubscriptionHandler").Logger(),
	}
}

// RegisterRoutes registers the subscription endpoints.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /subscriptions", h.store)
	mux.Handle("GET /subscriptions", authMw(http.HandlerFunc(h.adminList)))
	mux.HandleFunc("GET /subscriptions/{email}", h.listByEmail)
	mux.HandleFunc("GET /subscriptions/{email}/current", h.current)
	mux.HandleFunc("PUT /subscriptions/{id}", h.update)
	mux.HandleFunc("GET /checkout/success", h.checkoutSuccess)
	mux.HandleFunc("GET /checkout/cancel", h.checkoutCancel)
	if h.webhookEnabled {
		mux.HandleFunc("POST /webhooks/stripe", h.webhook)
	}
}

// store godoc
// @Summary Store a completed checkout
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body dto.StoreSubscriptionRequest true "Subscription"
// @Success 201 {object} dto.CreatedResponse
// @Failure 400 {object} dto.ErrorResponse "validation error or duplicate sessionId"
// @Router /subscriptions [post]
func (h *SubscriptionHandler) store(w http.ResponseWriter, r *http.Request) {
	var req dto.StoreSubscriptionRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sub, err := h.subSvc.Store(r.Context(), service.StoreSubscriptionInput{
		Email:              req.Email,
		PlanName:           req.PlanName,
		SessionID:          req.SessionID,
		UserID:             req.UserID,
		PriceID:            req.PriceID,
		Amount:             req.Amount,
		Currency:           req.Currency,
		Status:             req.Status,
		SubscriptionID:     req.SubscriptionID,
		CurrentPeriodStart: req.CurrentPeriodStart,
		CurrentPeriodEnd:   req.CurrentPeriodEnd,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.CreatedResponse{Success: true, ID: sub.ID.Hex()})
}

// adminList godoc
// @Summary List subscriptions
// @Description Filters by status (all for no filter), customer email substring and creation date. A date-only endDate includes the whole day.
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status or all"
// @Param customer query string false "Email substring"
// @Param startDate query string false "YYYY-MM-DD or RFC 3339"
// @Param endDate query string false "YYYY-MM-DD or RFC 3339"
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, 1..200"
// @Success 200 {object} model.SubscriptionPage
// @Failure 400 {object} dto.ErrorResponse
// @Router /subscriptions [get]
func (h *SubscriptionHandler) adminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.subSvc.AdminList(r.Context(), service.AdminListQuery{
		Status:    q.Get("status"),
		Customer:  q.Get("customer"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		Page:      q.Get("page"),
		Limit:     q.Get("limit"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// listByEmail godoc
// @Summary Subscriptions of a tenant, newest first
// @Tags subscriptions
// @Produce json
// @Param email path string true "Tenant email"
// @Success 200 {array} model.Subscription
// @Router /subscriptions/{email} [get]
func (h *SubscriptionHandler) listByEmail(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subSvc.ListByEmail(r.Context(), r.PathValue("email"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if subs == nil {
		subs = []model.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// current godoc
// @Summary Current plan of a tenant
// @Tags subscriptions
// @Produce json
// @Param email path string true "Tenant email"
// @Success 200 {object} model.Subscription
// @Failure 404 {object} dto.ErrorResponse
// @Router /subscriptions/{email}/current [get]
func (h *SubscriptionHandler) current(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subSvc.Current(r.Context(), r.PathValue("email"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// update godoc
// @Summary Update a subscription
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription id"
// @Param request body dto.UpdateSubscriptionRequest true "Changes"
// @Success 200 {object} model.Subscription
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /subscriptions/{id} [put]
func (h *SubscriptionHandler) update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateSubscriptionRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sub, err := h.subSvc.Update(r.Context(), r.PathValue("id"), service.UpdateSubscriptionInput{
		Status:           req.Status,
		CurrentPeriodEnd: req.CurrentPeriodEnd,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// checkoutSuccess godoc
// @Summary Checkout success target
// @Description Records the subscription of a completed checkout session. Repeated calls return the stored row.
// @Tags checkout
// @Produce json
// @Param session_id query string true "Checkout session id"
// @Success 200 {object} dto.CheckoutResultResponse "already recorded"
// @Success 201 {object} dto.CheckoutResultResponse "recorded now"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /checkout/success [get]
func (h *SubscriptionHandler) checkoutSuccess(w http.ResponseWriter, r *http.Request) {
	sub, created, err := h.subSvc.CompleteCheckout(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	status, msg := http.StatusOK, "Subscription already recorded"
	if created {
		status, msg = http.StatusCreated, "Subscription recorded"
	}
	writeJSON(w, status, dto.CheckoutResultResponse{Success: true, Created: created, Subscription: sub, Message: msg})
}

// checkoutCancel godoc
// @Summary Checkout cancel target
// @Tags checkout
// @Produce json
// @Success 200 {object} dto.MessageResponse
// @Router /checkout/cancel [get]
func (h *SubscriptionHandler) checkoutCancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.MessageResponse{Success: true, Message: "Checkout canceled"})
}

// webhook godoc
// @Summary Billing provider webhook
// @Tags checkout
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Signature"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /webhooks/stripe [post]
func (h *SubscriptionHandler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, h.logger, apperr.Validation("failed to read webhook body: %v", err))
		return
	}
	if err := h.subSvc.ApplyWebhook(r.Context(), payload, r.Header.Get(signatureHeader)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Success: true, Message: "received"})
}
