package service

import (
	"context"
	"strings"

	"erpsaas/internal/billing"
	"erpsaas/internal/config"

	"github.com/rs/zerolog"
)

// PaymentService starts payments with the billing provider.
type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, in PaymentIntentInput) (string, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*billing.CheckoutSession, error)
}

type PaymentIntentInput struct {
	Amount   int64  `validate:"required,gt=0"`
	Currency string `validate:"omitempty,len=3"`
}

type CheckoutInput struct {
	PriceID  string `validate:"required"`
	Email    string `validate:"omitempty,email"`
	PlanName string
	UserID   string
}

type paymentService struct {
	billing billing.Client
	cfg     *config.Config
	logger  zerolog.Logger
}

func NewPaymentService(billingClient billing.Client, cfg *config.Config, logger zerolog.Logger) PaymentService {
	return &paymentService{
		billing: billingClient,
		cfg:     cfg,
		logger:  logger.With().Str("service", "PaymentService").Logger(),
	}
}

// CreatePaymentIntent returns the client secret of a new payment intent.
func (s *paymentService) CreatePaymentIntent(ctx context.Context, in PaymentIntentInput) (string, error) {
	if err := validateStruct(in); err != nil {
		return "", err
	}
	currency := strings.ToLower(in.Currency)
	if currency == "" {
		currency = defaultPlanCurrency
	}
	return s.billing.CreatePaymentIntent(ctx, in.Amount, currency)
}

// CreateCheckoutSession starts a subscription checkout that redirects back
// to the success and cancel endpoints of this API.
func (s *paymentService) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*billing.CheckoutSession, error) {
	in.PriceID = strings.TrimSpace(in.PriceID)
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	md := map[string]string{}
	if in.PlanName != "" {
		md["planName"] = in.PlanName
	}
	if in.UserID != "" {
		md["userId"] = in.UserID
	}
	sess, err := s.billing.CreateCheckoutSession(ctx, billing.CheckoutParams{
		PriceID:       in.PriceID,
		CustomerEmail: in.Email,
		Metadata:      md,
		SuccessURL:    base + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     base + "/checkout/cancel",
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("session_id", sess.ID).Str("price_id", in.PriceID).Msg("Checkout session created")
	return sess, nil
}
