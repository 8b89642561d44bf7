package service

import (
	"context"
	"testing"

	"erpsaas/internal/apperr"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentIntent(t *testing.T) {
	svc := NewPaymentService(&fakeBilling{}, testConfig(), zerolog.Nop())

	secret, err := svc.CreatePaymentIntent(context.Background(), PaymentIntentInput{Amount: 1500})
	require.NoError(t, err)
	assert.Equal(t, "pi_secret_usd", secret)

	secret, err = svc.CreatePaymentIntent(context.Background(), PaymentIntentInput{Amount: 1500, Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, "pi_secret_eur", secret)

	_, err = svc.CreatePaymentIntent(context.Background(), PaymentIntentInput{Amount: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateCheckoutSession(t *testing.T) {
	bill := &fakeBilling{}
	svc := NewPaymentService(bill, testConfig(), zerolog.Nop())

	sess, err := svc.CreateCheckoutSession(context.Background(), CheckoutInput{
		PriceID:  " price_1 ",
		Email:    "Owner@Acme.io",
		PlanName: "Pro",
		UserID:   "u-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "price_1", bill.lastParams.PriceID)
	assert.Equal(t, "owner@acme.io", bill.lastParams.CustomerEmail)
	assert.Equal(t, "https://api.example/checkout/success?session_id={CHECKOUT_SESSION_ID}", bill.lastParams.SuccessURL)
	assert.Equal(t, "https://api.example/checkout/cancel", bill.lastParams.CancelURL)
	assert.Equal(t, map[string]string{"planName": "Pro", "userId": "u-1"}, bill.lastParams.Metadata)

	_, err = svc.CreateCheckoutSession(context.Background(), CheckoutInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
