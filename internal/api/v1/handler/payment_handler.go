package handler

import (
	"net/http"

	"erpsaas/internal/api/v1/dto"
	"erpsaas/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type PaymentHandler struct {
	svc      service.PaymentService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewPaymentHandler(svc service.PaymentService, v *validator.Validate, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, validate: v, logger: logger.With().Str("handler", "PaymentHandler").Logger()}
}

func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux, _ func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /create-payment-intent", h.createPaymentIntent)
	mux.HandleFunc("POST /create-checkout-session", h.createCheckoutSession)
}

// createPaymentIntent godoc
// @Summary Create a payment intent
// @Tags payments
// @Accept json
// @Produce json
// @Param request body dto.PaymentIntentRequest true "Amount in minor units"
// @Success 200 {object} dto.PaymentIntentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /create-payment-intent [post]
func (h *PaymentHandler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req dto.PaymentIntentRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	secret, err := h.svc.CreatePaymentIntent(r.Context(), service.PaymentIntentInput{Amount: req.Amount, Currency: req.Currency})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PaymentIntentResponse{ClientSecret: secret})
}

// createCheckoutSession godoc
// @Summary Create a subscription checkout session
// @Tags payments
// @Accept json
// @Produce json
// @Param request body dto.CheckoutSessionRequest true "Price to subscribe to"
// @Success 200 {object} dto.CheckoutSessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /create-checkout-session [post]
func (h *PaymentHandler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckoutSessionRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sess, err := h.svc.CreateCheckoutSession(r.Context(), service.CheckoutInput{
		PriceID:  req.PriceID,
		Email:    req.Email,
		PlanName: req.PlanName,
		UserID:   req.UserID,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CheckoutSessionResponse{SessionID: sess.ID, URL: sess.URL})
}
