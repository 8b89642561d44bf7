package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"erpsaas/internal/apperr"
	"erpsaas/internal/billing"
	"erpsaas/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlanFixture() (*planService, *fakePlans, *fakeBilling, *fakeERP) {
	plans, bill, erpc := newFakePlans(), &fakeBilling{}, newFakeERP()
	svc := NewPlanService(plans, bill, erpc, zerolog.Nop()).(*planService)
	svc.now = func() time.Time { return fixedNow }
	return svc, plans, bill, erpc
}

func TestCreatePlan(t *testing.T) {
	svc, plans, bill, erpc := newPlanFixture()
	plan, err := svc.Create(context.Background(), PlanInput{
		Name:        " Pro ",
		Price:       29.99,
		Features:    []string{"invoicing"},
		AccessRoles: []string{"Accounts User"},
		Limits:      model.PlanLimits{Users: 5, Quotations: -1, Invoices: -1, Suppliers: 10, Customers: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, "Pro", plan.Name)
	assert.Equal(t, "prod_1", plan.ProductID)
	assert.Equal(t, "price_prod_1_usd_month", plan.PriceID)
	assert.Equal(t, "USD", plan.Currency)
	assert.True(t, plan.Active)
	assert.Contains(t, plans.byProduct, "prod_1")
	assert.Equal(t, []string{"price_prod_1_usd_month"}, bill.prices)
	assert.Equal(t, 1, erpc.count("CreatePlan"))
}

func TestCreatePlanValidation(t *testing.T) {
	svc, _, bill, _ := newPlanFixture()
	_, err := svc.Create(context.Background(), PlanInput{Name: "Pro", Price: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(context.Background(), PlanInput{Name: "Pro", Interval: "fortnight"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(context.Background(), PlanInput{Name: "Pro", Limits: model.PlanLimits{Users: -2}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, bill.nextID)
}

func TestCreatePlanToleratesERPFailure(t *testing.T) {
	svc, _, _, erpc := newPlanFixture()
	erpc.fail["CreatePlan"] = apperr.Upstream("erp", "create plan", assert.AnError)
	plan, err := svc.Create(context.Background(), PlanInput{Name: "Basic", Price: 9})
	require.NoError(t, err)
	assert.Equal(t, "prod_1", plan.ProductID)
}

func TestUpdatePlanRepricesWhenAmountChanges(t *testing.T) {
	svc, plans, bill, erpc := newPlanFixture()
	_, err := svc.Create(context.Background(), PlanInput{Name: "Pro", Price: 29.99})
	require.NoError(t, err)

	name := "Pro Plus"
	plan, err := svc.Update(context.Background(), "prod_1", PlanUpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Pro Plus", plan.Name)
	assert.Len(t, bill.prices, 1)

	price, interval := 39.5, "year"
	plan, err = svc.Update(context.Background(), "prod_1", PlanUpdateInput{Price: &price, Interval: &interval})
	require.NoError(t, err)
	assert.Len(t, bill.prices, 2)
	assert.Equal(t, "price_prod_1_USD_year", plan.PriceID)
	assert.Equal(t, 39.5, plans.byProduct["prod_1"].Price)
	assert.Equal(t, []string{"Pro Plus", "Pro Plus"}, bill.updatedNames)
	assert.Equal(t, 2, erpc.count("UpdatePlan"))

	_, err = svc.Update(context.Background(), "prod_missing", PlanUpdateInput{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestArchivePlan(t *testing.T) {
	svc, plans, bill, _ := newPlanFixture()
	_, err := svc.Create(context.Background(), PlanInput{Name: "Pro", Price: 10})
	require.NoError(t, err)

	require.NoError(t, svc.Archive(context.Background(), "prod_1"))
	assert.False(t, plans.byProduct["prod_1"].Active)
	assert.Equal(t, []string{"prod_1"}, bill.archived)

	// products created outside this backend have no local row
	require.NoError(t, svc.Archive(context.Background(), "prod_external"))
	assert.ErrorIs(t, svc.Archive(context.Background(), ""), apperr.ErrValidation)
}

func TestListPlansNeverNil(t *testing.T) {
	svc, _, bill, _ := newPlanFixture()
	products, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	bill.products = []billing.Product{{ID: "prod_1", Name: "Pro", Active: true}}
	products, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestListPlansFallsBackToLocalMirror(t *testing.T) {
	svc, plans, bill, _ := newPlanFixture()
	plans.byProduct["prod_1"] = &model.Plan{
		ProductID: "prod_1",
		PriceID:   "price_1",
		Name:      "Pro",
		Price:     29.99,
		Currency:  "USD",
		Interval:  "month",
		Features:  []string{"invoicing"},
		Limits:    model.PlanLimits{Users: 5},
		Active:    true,
	}
	bill.listErr = &apperr.UpstreamError{Service: "billing", Op: "list products", Message: "connection refused"}

	products, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "prod_1", products[0].ID)
	assert.Equal(t, []string{"invoicing"}, products[0].Metadata.Features)
	assert.Equal(t, []string{}, products[0].Metadata.AccessRoles)
	require.Len(t, products[0].Prices, 1)
	assert.Equal(t, int64(2999), products[0].Prices[0].UnitAmount)
	assert.Equal(t, "usd", products[0].Prices[0].Currency)

	bill.listErr = errors.New("boom")
	_, err = svc.List(context.Background())
	assert.Error(t, err)
}
