package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"erpsaas/internal/apperr"
	"erpsaas/internal/billing"
	"erpsaas/internal/erp"
	"erpsaas/internal/model"
	"erpsaas/internal/repository"

	"github.com/rs/zerolog"
)

const (
	defaultPlanCurrency = "usd"
	defaultPlanInterval = "month"
)

// PlanService manages billing plans. The billing provider's product id is the
// authoritative plan identifier; the local row and the ERP plan are mirrors.
type PlanService interface {
	Create(ctx context.Context, in PlanInput) (*model.Plan, error)
	List(ctx context.Context) ([]billing.Product, error)
	Update(ctx context.Context, productID string, in PlanUpdateInput) (*model.Plan, error)
	Archive(ctx context.Context, productID string) error
}

type PlanInput struct {
	Name        string           `validate:"required"`
	Price       float64          `validate:"gte=0"`
	Currency    string           `validate:"omitempty,len=3"`
	Interval    string           `validate:"omitempty,oneof=day week month year"`
	Features    []string         `validate:"dive,required"`
	AccessRoles []string         `validate:"dive,required"`
	Limits      model.PlanLimits
}

// PlanUpdateInput carries the fields to change; nil fields are kept.
type PlanUpdateInput struct {
	Name        *string
	Price       *float64 `validate:"omitempty,gte=0"`
	Currency    *string  `validate:"omitempty,len=3"`
	Interval    *string  `validate:"omitempty,oneof=day week month year"`
	Features    []string `validate:"omitempty,dive,required"`
	AccessRoles []string `validate:"omitempty,dive,required"`
	Limits      *model.PlanLimits
}

type planService struct {
	plans   repository.PlanRepository
	billing billing.Client
	erp     erp.Client
	logger  zerolog.Logger
	now     func() time.Time
}

func NewPlanService(plans repository.PlanRepository, billingClient billing.Client, erpClient erp.Client, logger zerolog.Logger) PlanService {
	return &planService{
		plans:   plans,
		billing: billingClient,
		erp:     erpClient,
		logger:  logger.With().Str("service", "PlanService").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create makes the provider product and recurring price, then mirrors the
// plan locally and, best-effort, into the ERP.
func (s *planService) Create(ctx context.Context, in PlanInput) (*model.Plan, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Currency == "" {
		in.Currency = defaultPlanCurrency
	}
	if in.Interval == "" {
		in.Interval = defaultPlanInterval
	}
	unitAmount, err := billing.ToMinorUnits(in.Price)
	if err != nil {
		return nil, err
	}
	meta := billing.PlanMetadata{Features: in.Features, AccessRoles: in.AccessRoles, Limits: in.Limits}

	productID, err := s.billing.CreateProduct(ctx, in.Name, meta)
	if err != nil {
		return nil, err
	}
	priceID, err := s.billing.CreatePrice(ctx, productID, unitAmount, in.Currency, in.Interval)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("Created product without a price")
		return nil, err
	}

	now := s.now()
	plan := &model.Plan{
		ProductID:   productID,
		PriceID:     priceID,
		Name:        in.Name,
		Price:       in.Price,
		Currency:    strings.ToUpper(in.Currency),
		Interval:    in.Interval,
		Features:    nonNilStrings(in.Features),
		AccessRoles: nonNilStrings(in.AccessRoles),
		Limits:      in.Limits,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("Failed to store plan locally")
		return nil, err
	}
	if _, err := s.erp.CreatePlan(ctx, erpPlan(plan)); err != nil {
		s.logger.Warn().Err(err).Str("plan", plan.Name).Msg("Failed to create ERP plan")
	}
	s.logger.Info().Str("product_id", productID).Str("price_id", priceID).Msg("Plan created")
	return plan, nil
}

// List reads plans from the billing provider. When the provider is
// unreachable the local mirror is served instead.
func (s *planService) List(ctx context.Context) ([]billing.Product, error) {
	products, err := s.billing.ListProducts(ctx)
	if errors.Is(err, apperr.ErrUpstream) {
		s.logger.Warn().Err(err).Msg("Billing provider unavailable, listing local plans")
		local, lerr := s.plans.List(ctx)
		if lerr != nil {
			return nil, err
		}
		return localProducts(local), nil
	}
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []billing.Product{}
	}
	return products, nil
}

// Update changes product name and metadata in place. Provider prices are
// immutable, so a new price is created when amount, currency or interval change.
func (s *planService) Update(ctx context.Context, productID string, in PlanUpdateInput) (*model.Plan, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperr.Validation("productId is required")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	plan, err := s.plans.GetByProductID(ctx, productID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("plan %s not found", productID)
		}
		return nil, err
	}
	erpName := plan.Name

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		plan.Name = strings.TrimSpace(*in.Name)
	}
	if in.Features != nil {
		plan.Features = in.Features
	}
	if in.AccessRoles != nil {
		plan.AccessRoles = in.AccessRoles
	}
	if in.Limits != nil {
		plan.Limits = *in.Limits
	}
	repriced := false
	if in.Price != nil && *in.Price != plan.Price {
		plan.Price, repriced = *in.Price, true
	}
	if in.Currency != nil && !strings.EqualFold(*in.Currency, plan.Currency) {
		plan.Currency, repriced = strings.ToUpper(*in.Currency), true
	}
	if in.Interval != nil && *in.Interval != plan.Interval {
		plan.Interval, repriced = *in.Interval, true
	}

	meta := billing.PlanMetadata{Features: plan.Features, AccessRoles: plan.AccessRoles, Limits: plan.Limits}
	if err := s.billing.UpdateProduct(ctx, productID, plan.Name, meta); err != nil {
		return nil, err
	}
	if repriced {
		unitAmount, err := billing.ToMinorUnits(plan.Price)
		if err != nil {
			return nil, err
		}
		priceID, err := s.billing.CreatePrice(ctx, productID, unitAmount, plan.Currency, plan.Interval)
		if err != nil {
			return nil, err
		}
		plan.PriceID = priceID
	}
	if err := s.plans.Update(ctx, plan); err != nil {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("Failed to update local plan")
		return nil, err
	}
	if _, err := s.erp.UpdatePlan(ctx, erpName, erpPlan(plan)); err != nil {
		s.logger.Warn().Err(err).Str("plan", erpName).Msg("Failed to update ERP plan")
	}
	return plan, nil
}

func (s *planService) Archive(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return apperr.Validation("productId is required")
	}
	if err := s.billing.ArchiveProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.plans.SetActive(ctx, productID, false); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("Failed to deactivate local plan")
		return err
	}
	s.logger.Info().Str("product_id", productID).Msg("Plan archived")
	return nil
}

func erpPlan(p *model.Plan) erp.Plan {
	return erp.Plan{
		PlanName:    p.Name,
		Price:       p.Price,
		Currency:    p.Currency,
		Interval:    p.Interval,
		ProductID:   p.PriceID,
		Features:    p.Features,
		AccessRoles: p.AccessRoles,
		MaxUsers:    p.Limits.Users,
		MaxQuotes:   p.Limits.Quotations,
		MaxInvoices: p.Limits.Invoices,
		MaxSupplier: p.Limits.Suppliers,
		MaxCustomer: p.Limits.Customers,
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// localProducts renders mirrored plan rows in the provider's product shape.
func localProducts(plans []model.Plan) []billing.Product {
	out := make([]billing.Product, 0, len(plans))
	for _, p := range plans {
		prod := billing.Product{
			ID:     p.ProductID,
			Name:   p.Name,
			Active: p.Active,
			Metadata: billing.PlanMetadata{
				Features:    nonNilStrings(p.Features),
				AccessRoles: nonNilStrings(p.AccessRoles),
				Limits:      p.Limits,
			},
			Prices:    []billing.Price{},
			CreatedAt: p.CreatedAt,
		}
		if amount, err := billing.ToMinorUnits(p.Price); err == nil && p.PriceID != "" {
			prod.Prices = append(prod.Prices, billing.Price{
				ID:         p.PriceID,
				ProductID:  p.ProductID,
				UnitAmount: amount,
				Currency:   strings.ToLower(p.Currency),
				Interval:   p.Interval,
				Active:     p.Active,
			})
		}
		out = append(out, prod)
	}
	return out
}
