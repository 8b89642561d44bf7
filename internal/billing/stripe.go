// Package billing wraps the payment provider (Stripe). The secret key is
// resolved per call so an admin can rotate it at runtime.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"erpsaas/internal/apperr"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"
)

// KeySource resolves the provider secret key for one call.
type KeySource interface {
	BillingSecretKey(ctx context.Context) (string, error)
}

// Client is the set of billing provider operations the backend uses.
type Client interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CompletedCheckout, error)
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error)
	CreateProduct(ctx context.Context, name string, meta PlanMetadata) (string, error)
	UpdateProduct(ctx context.Context, id, name string, meta PlanMetadata) error
	ArchiveProduct(ctx context.Context, id string) error
	CreatePrice(ctx context.Context, productID string, unitAmount int64, currency, interval string) (string, error)
	ListProducts(ctx context.Context) ([]Product, error)
	ListPrices(ctx context.Context, productID string) ([]Price, error)
}

type CheckoutParams struct {
	PriceID       string
	CustomerEmail string
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// CompletedCheckout summarizes a checkout session for recording a subscription.
type CompletedCheckout struct {
	SessionID      string
	Status         string
	PaymentStatus  string
	Email          string
	PriceID        string
	PlanName       string
	Amount         int64
	Currency       string
	SubscriptionID string
	SubscriptionSt string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Metadata       map[string]string
}

// Complete reports whether the customer finished paying.
func (c *CompletedCheckout) Complete() bool {
	return c.Status == string(stripe.CheckoutSessionStatusComplete)
}

type Product struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Active    bool         `json:"active"`
	Metadata  PlanMetadata `json:"metadata"`
	Prices    []Price      `json:"prices"`
	CreatedAt time.Time    `json:"createdAt"`
}

type Price struct {
	ID         string `json:"id"`
	ProductID  string `json:"productId"`
	UnitAmount int64  `json:"unitAmount"`
	Currency   string `json:"currency"`
	Interval   string `json:"interval,omitempty"`
	Active     bool   `json:"active"`
}

type stripeBilling struct {
	keys   KeySource
	logger zerolog.Logger
}

// NewStripe returns a Client backed by Stripe.
func NewStripe(keys KeySource, logger zerolog.Logger) Client {
	return &stripeBilling{keys: keys, logger: logger.With().Str("service", "StripeBilling").Logger()}
}

func (s *stripeBilling) api(ctx context.Context, op string) (*stripeclient.API, error) {
	key, err := s.keys.BillingSecretKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve billing key: %w", err)
	}
	if key == "" {
		return nil, &apperr.UpstreamError{Service: "billing", Op: op, Message: "billing secret key is not configured"}
	}
	return stripeclient.New(key, nil), nil
}

// CreateCheckoutSession creates a subscription-mode Stripe Checkout session.
func (s *stripeBilling) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	const op = "create checkout session"
	sc, err := s.api(ctx, op)
	if err != nil {
		return nil, err
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems:  []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(1)}},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	sess, err := sc.CheckoutSessions.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("price_id", p.PriceID).Msg("Failed to create Stripe checkout session")
		return nil, providerError(op, err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// GetCheckoutSession fetches a session with its subscription and line items.
func (s *stripeBilling) GetCheckoutSession(ctx context.Context, id string) (*CompletedCheckout, error) {
	const op = "get checkout session"
	sc, err := s.api(ctx, op)
	if err != nil {
		return nil, err
	}
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("subscription")
	params.AddExpand("line_items")
	sess, err := sc.CheckoutSessions.Get(id, params)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", id).Msg("Failed to fetch Stripe checkout session")
		return nil, providerError(op, err)
	}

	out := &CompletedCheckout{
		SessionID:     sess.ID,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		Email:         sess.CustomerEmail,
		Amount:        sess.AmountTotal,
		Currency:      strings.ToUpper(string(sess.Currency)),
		Metadata:      sess.Metadata,
	}
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		out.Email = sess.CustomerDetails.Email
	}
	if sess.LineItems != nil && len(sess.LineItems.Data) > 0 {
		item := sess.LineItems.Data[0]
		out.PlanName = item.Description
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
	}
	if sub := sess.Subscription; sub != nil {
		out.SubscriptionID = sub.ID
		out.SubscriptionSt = string(sub.Status)
		if sub.Items != nil && len(sub.Items.Data) > 0 {
			item := sub.Items.Data[0]
			out.PeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
			out.PeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
		}
	}
	if name := sess.Metadata["planName"]; name != "" {
		out.PlanName = name
	}
	return out, nil
}

// CreatePaymentIntent returns the client secret of a new payment intent.
func (s *stripeBilling) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error) {
	const op = "create payment intent"
	sc, err := s.api(ctx, op)
	if err != nil {
		return "", err
	}
	pi, err := sc.PaymentIntents.New(&stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(strings.ToLower(currency)),
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("amount", amount).Msg("Failed to create Stripe payment intent")
		return "", providerError(op, err)
	}
	return pi.ClientSecret, nil
}

func (s *stripeBilling) CreateProduct(ctx context.Context, name string, meta PlanMetadata) (string, error) {
	const op = "create product"
	md, err := meta.Encode()
	if err != nil {
		return "", err
	}
	sc, err := s.api(ctx, op)
	if err != nil {
		return "", err
	}
	params := &stripe.ProductParams{Name: stripe.String(name)}
	for k, v := range md {
		params.AddMetadata(k, v)
	}
	prod, err := sc.Products.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("Failed to create Stripe product")
		return "", providerError(op, err)
	}
	return prod.ID, nil
}

func (s *stripeBilling) UpdateProduct(ctx context.Context, id, name string, meta PlanMetadata) error {
	const op = "update product"
	md, err := meta.Encode()
	if err != nil {
		return err
	}
	sc, err := s.api(ctx, op)
	if err != nil {
		return err
	}
	params := &stripe.ProductParams{}
	if name != "" {
		params.Name = stripe.String(name)
	}
	for k, v := range md {
		params.AddMetadata(k, v)
	}
	if _, err := sc.Products.Update(id, params); err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("Failed to update Stripe product")
		return providerError(op, err)
	}
	return nil
}

// ArchiveProduct deactivates a product; the provider does not delete products with prices.
func (s *stripeBilling) ArchiveProduct(ctx context.Context, id string) error {
	const op = "archive product"
	sc, err := s.api(ctx, op)
	if err != nil {
		return err
	}
	if _, err := sc.Products.Update(id, &stripe.ProductParams{Active: stripe.Bool(false)}); err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("Failed to archive Stripe product")
		return providerError(op, err)
	}
	return nil
}

func (s *stripeBilling) CreatePrice(ctx context.Context, productID string, unitAmount int64, currency, interval string) (string, error) {
	const op = "create price"
	sc, err := s.api(ctx, op)
	if err != nil {
		return "", err
	}
	params := &stripe.PriceParams{
		Product:    stripe.String(productID),
		UnitAmount: stripe.Int64(unitAmount),
		Currency:   stripe.String(strings.ToLower(currency)),
	}
	if interval != "" {
		params.Recurring = &stripe.PriceRecurringParams{Interval: stripe.String(interval)}
	}
	price, err := sc.Prices.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("Failed to create Stripe price")
		return "", providerError(op, err)
	}
	return price.ID, nil
}

// ListProducts returns active products with their parsed metadata and prices.
func (s *stripeBilling) ListProducts(ctx context.Context) ([]Product, error) {
	const op = "list products"
	sc, err := s.api(ctx, op)
	if err != nil {
		return nil, err
	}
	it := sc.Products.List(&stripe.ProductListParams{Active: stripe.Bool(true)})
	var out []Product
	for it.Next() {
		p := it.Product()
		meta, err := ParseMetadata(p.Metadata)
		if err != nil {
			s.logger.Warn().Err(err).Str("product_id", p.ID).Msg("Skipping product with invalid plan metadata")
			continue
		}
		out = append(out, Product{
			ID:        p.ID,
			Name:      p.Name,
			Active:    p.Active,
			Metadata:  meta,
			CreatedAt: time.Unix(p.Created, 0).UTC(),
		})
	}
	if err := it.Err(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to list Stripe products")
		return nil, providerError(op, err)
	}
	for i := range out {
		prices, err := s.listPrices(sc, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Prices = prices
	}
	return out, nil
}

func (s *stripeBilling) ListPrices(ctx context.Context, productID string) ([]Price, error) {
	sc, err := s.api(ctx, "list prices")
	if err != nil {
		return nil, err
	}
	return s.listPrices(sc, productID)
}

func (s *stripeBilling) listPrices(sc *stripeclient.API, productID string) ([]Price, error) {
	it := sc.Prices.List(&stripe.PriceListParams{Product: stripe.String(productID)})
	var out []Price
	for it.Next() {
		p := it.Price()
		price := Price{
			ID:         p.ID,
			ProductID:  productID,
			UnitAmount: p.UnitAmount,
			Currency:   strings.ToUpper(string(p.Currency)),
			Active:     p.Active,
		}
		if p.Recurring != nil {
			price.Interval = string(p.Recurring.Interval)
		}
		out = append(out, price)
	}
	if err := it.Err(); err != nil {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("Failed to list Stripe prices")
		return nil, providerError("list prices", err)
	}
	return out, nil
}

// providerError keeps the provider's own message and status on the UpstreamError.
func providerError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &apperr.UpstreamError{Service: "billing", Op: op, Status: se.HTTPStatusCode, Message: se.Msg, Err: err}
	}
	return apperr.Upstream("billing", op, err)
}
