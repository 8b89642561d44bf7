package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"erpsaas/internal/apperr"
	"erpsaas/internal/billing"
	"erpsaas/internal/erp"
	"erpsaas/internal/mailer"
	"erpsaas/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type fakeUsers struct {
	byEmail   map[string]*model.TenantAccount
	createErr error
	customers []model.Customer
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byEmail: map[string]*model.TenantAccount{}} }

func (f *fakeUsers) Create(_ context.Context, acct *model.TenantAccount) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byEmail[acct.Email]; ok {
		return apperr.Conflict("duplicate email")
	}
	acct.ID = bson.NewObjectID()
	f.byEmail[acct.Email] = acct
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.TenantAccount, error) {
	acct, ok := f.byEmail[email]
	if !ok {
		return nil, apperr.NotFound("not found")
	}
	return acct, nil
}

func (f *fakeUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, email string, upd model.ProfileUpdate) (*model.TenantAccount, error) {
	acct, ok := f.byEmail[email]
	if !ok {
		return nil, apperr.NotFound("not found")
	}
	if upd.Country != nil {
		acct.Country = *upd.Country
	}
	if upd.Currency != nil {
		acct.Currency = *upd.Currency
	}
	if upd.FirstName != nil {
		acct.FirstName = *upd.FirstName
	}
	return acct, nil
}

func (f *fakeUsers) SetPasswordHash(_ context.Context, email, hash string) error {
	acct, ok := f.byEmail[email]
	if !ok {
		return apperr.NotFound("not found")
	}
	acct.PasswordHash = hash
	return nil
}

func (f *fakeUsers) SetActive(_ context.Context, email string, active bool) error {
	acct, ok := f.byEmail[email]
	if !ok {
		return apperr.NotFound("not found")
	}
	acct.IsActive = active
	return nil
}

func (f *fakeUsers) ListCustomers(context.Context) ([]model.Customer, error) {
	return f.customers, nil
}

type fakeRuns struct {
	runs  map[bson.ObjectID]*model.ProvisioningRun
	saves int
}

func newFakeRuns() *fakeRuns { return &fakeRuns{runs: map[bson.ObjectID]*model.ProvisioningRun{}} }

func (f *fakeRuns) Create(_ context.Context, run *model.ProvisioningRun) error {
	run.ID = bson.NewObjectID()
	f.runs[run.ID] = run
	return nil
}

func (f *fakeRuns) Save(_ context.Context, run *model.ProvisioningRun) error {
	f.saves++
	f.runs[run.ID] = run
	return nil
}

func (f *fakeRuns) GetByID(_ context.Context, id bson.ObjectID) (*model.ProvisioningRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, apperr.NotFound("run not found")
	}
	return run, nil
}

func (f *fakeRuns) LatestForEmail(_ context.Context, email string) (*model.ProvisioningRun, error) {
	var latest *model.ProvisioningRun
	for _, r := range f.runs {
		if r.Email == email && (latest == nil || r.CreatedAt.After(latest.CreatedAt)) {
			latest = r
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("run not found")
	}
	return latest, nil
}

func (f *fakeRuns) ListResumable(_ context.Context, maxResumes, limit int, olderThan time.Time) ([]model.ProvisioningRun, error) {
	var out []model.ProvisioningRun
	for _, r := range f.runs {
		if r.Status == model.RunStatusPartial && r.Resumes < maxResumes && !r.UpdatedAt.After(olderThan) && len(out) < limit {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakeProfiles struct {
	snaps     map[string]*model.ProfileCompletionSnapshot
	createErr error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{snaps: map[string]*model.ProfileCompletionSnapshot{}}
}

func (f *fakeProfiles) Create(_ context.Context, snap *model.ProfileCompletionSnapshot) error {
	if f.createErr != nil {
		return f.createErr
	}
	snap.ID = bson.NewObjectID()
	f.snaps[snap.Email] = snap
	return nil
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (*model.ProfileCompletionSnapshot, error) {
	snap, ok := f.snaps[email]
	if !ok {
		return nil, apperr.NotFound("not found")
	}
	return snap, nil
}

type fakeOTPs struct {
	tokens []*model.OTPToken
}

func (f *fakeOTPs) Create(_ context.Context, tok *model.OTPToken) error {
	tok.ID = bson.NewObjectID()
	f.tokens = append(f.tokens, tok)
	return nil
}

func (f *fakeOTPs) LatestValid(_ context.Context, email string, at time.Time) (*model.OTPToken, error) {
	for i := len(f.tokens) - 1; i >= 0; i-- {
		t := f.tokens[i]
		if t.Email == email && !t.Used && t.ExpiresAt.After(at) {
			return t, nil
		}
	}
	return nil, apperr.NotFound("no code")
}

func (f *fakeOTPs) MarkUsed(_ context.Context, id bson.ObjectID) error {
	for _, t := range f.tokens {
		if t.ID == id {
			t.Used = true
			return nil
		}
	}
	return apperr.NotFound("no code")
}

func (f *fakeOTPs) InvalidateAll(_ context.Context, email string) error {
	for _, t := range f.tokens {
		if t.Email == email {
			t.Used = true
		}
	}
	return nil
}

type fakeSubs struct {
	bySession  map[string]*model.Subscription
	lastFilter model.SubscriptionFilter
}

func newFakeSubs() *fakeSubs { return &fakeSubs{bySession: map[string]*model.Subscription{}} }

func (f *fakeSubs) Create(_ context.Context, sub *model.Subscription) error {
	if _, ok := f.bySession[sub.SessionID]; ok {
		return apperr.Conflict("duplicate session")
	}
	sub.ID = bson.NewObjectID()
	f.bySession[sub.SessionID] = sub
	return nil
}

func (f *fakeSubs) GetBySessionID(_ context.Context, id string) (*model.Subscription, error) {
	sub, ok := f.bySession[id]
	if !ok {
		return nil, apperr.NotFound("not found")
	}
	return sub, nil
}

func (f *fakeSubs) ListByEmail(_ context.Context, email string) ([]model.Subscription, error) {
	out := []model.Subscription{}
	for _, s := range f.bySession {
		if s.Email == email {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSubs) Current(_ context.Context, email string) (*model.Subscription, error) {
	var best *model.Subscription
	for _, s := range f.bySession {
		if s.Email != email || s.Status != model.SubscriptionStatusActive {
			continue
		}
		if best == nil || s.CreatedAt.After(best.CreatedAt) {
			best = s
		}
	}
	if best == nil {
		return nil, apperr.NotFound("not found")
	}
	return best, nil
}

func (f *fakeSubs) Update(_ context.Context, id bson.ObjectID, status string, periodEnd *time.Time) (*model.Subscription, error) {
	for _, s := range f.bySession {
		if s.ID == id {
			if status != "" {
				s.Status = status
			}
			if periodEnd != nil {
				s.CurrentPeriodEnd = *periodEnd
			}
			return s, nil
		}
	}
	return nil, apperr.NotFound("not found")
}

func (f *fakeSubs) UpdateByProviderID(_ context.Context, subscriptionID, status string, _, _ *time.Time) (int64, error) {
	var n int64
	for _, s := range f.bySession {
		if s.SubscriptionID == subscriptionID {
			s.Status = status
			n++
		}
	}
	return n, nil
}

func (f *fakeSubs) List(_ context.Context, filter model.SubscriptionFilter) (*model.SubscriptionPage, error) {
	f.lastFilter = filter
	return &model.SubscriptionPage{Page: filter.Page, Limit: filter.Limit, Subscriptions: []model.Subscription{}}, nil
}

type fakePlans struct {
	byProduct map[string]*model.Plan
}

func newFakePlans() *fakePlans { return &fakePlans{byProduct: map[string]*model.Plan{}} }

func (f *fakePlans) Create(_ context.Context, p *model.Plan) error {
	p.ID = bson.NewObjectID()
	f.byProduct[p.ProductID] = p
	return nil
}

func (f *fakePlans) GetByProductID(_ context.Context, id string) (*model.Plan, error) {
	p, ok := f.byProduct[id]
	if !ok {
		return nil, apperr.NotFound("not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlans) Update(_ context.Context, p *model.Plan) error {
	f.byProduct[p.ProductID] = p
	return nil
}

func (f *fakePlans) SetActive(_ context.Context, id string, active bool) error {
	p, ok := f.byProduct[id]
	if !ok {
		return apperr.NotFound("not found")
	}
	p.Active = active
	return nil
}

func (f *fakePlans) List(context.Context) ([]model.Plan, error) {
	out := []model.Plan{}
	for _, p := range f.byProduct {
		out = append(out, *p)
	}
	return out, nil
}

// fakeERP records every call by operation name and fails the operations
// listed in fail.
type fakeERP struct {
	mu         sync.Mutex
	calls      []string
	fail       map[string]error
	employeeID string
	updates    map[string]map[string]any
}

func newFakeERP() *fakeERP {
	return &fakeERP{fail: map[string]error{}, employeeID: "HR-EMP-0001", updates: map[string]map[string]any{}}
}

func (f *fakeERP) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.fail[op]
}

func (f *fakeERP) count(op string) int {
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func erpOK(op string) json.RawMessage { return json.RawMessage(`{"data":{"op":"` + op + `"}}`) }

func (f *fakeERP) CreateCompany(context.Context, erp.Company) (json.RawMessage, error) {
	return erpOK("company"), f.record("CreateCompany")
}

func (f *fakeERP) UpdateCompany(_ context.Context, name string, fields map[string]any) (json.RawMessage, error) {
	f.updates["company:"+name] = fields
	return erpOK("company"), f.record("UpdateCompany")
}

func (f *fakeERP) CreateUser(context.Context, erp.User) (json.RawMessage, error) {
	return erpOK("user"), f.record("CreateUser")
}

func (f *fakeERP) UpdateUser(_ context.Context, id string, fields map[string]any) (json.RawMessage, error) {
	f.updates["user:"+id] = fields
	return erpOK("user"), f.record("UpdateUser")
}

func (f *fakeERP) GetUser(context.Context, string) (json.RawMessage, error) {
	return erpOK("user"), f.record("GetUser")
}

func (f *fakeERP) CreateEmployee(context.Context, erp.Employee) (string, json.RawMessage, error) {
	if err := f.record("CreateEmployee"); err != nil {
		return "", nil, err
	}
	return f.employeeID, erpOK("employee"), nil
}

func (f *fakeERP) UpdateEmployee(context.Context, string, map[string]any) (json.RawMessage, error) {
	return erpOK("employee"), f.record("UpdateEmployee")
}

func (f *fakeERP) SetUserPermission(context.Context, string) (json.RawMessage, error) {
	return erpOK("permission"), f.record("SetUserPermission")
}

func (f *fakeERP) CreatePlan(context.Context, erp.Plan) (json.RawMessage, error) {
	return erpOK("plan"), f.record("CreatePlan")
}

func (f *fakeERP) UpdatePlan(context.Context, string, erp.Plan) (json.RawMessage, error) {
	return erpOK("plan"), f.record("UpdatePlan")
}

func (f *fakeERP) SubscribeCompanyPlan(context.Context, string, string) (json.RawMessage, error) {
	return erpOK("subscribe"), f.record("SubscribeCompanyPlan")
}

func (f *fakeERP) ListCountries(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"data":[{"name":"Kenya"}]}`), f.record("ListCountries")
}

func (f *fakeERP) ListCurrencies(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"data":[{"name":"USD"}]}`), f.record("ListCurrencies")
}

func (f *fakeERP) CompanyEmployees(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{"data":[]}`), f.record("CompanyEmployees")
}

func (f *fakeERP) Exists(context.Context, string, string) (bool, json.RawMessage, error) {
	return true, json.RawMessage(`{"data":[{"name":"x"}]}`), f.record("Exists")
}

type fakeMail struct {
	sent []mailer.Message
	err  error
}

func (f *fakeMail) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeEvents struct {
	types []string
	err   error
}

func (f *fakeEvents) Emit(_ context.Context, eventType string, _ any) error {
	f.types = append(f.types, eventType)
	return f.err
}

type fakeBilling struct {
	checkout     *billing.CompletedCheckout
	checkoutErr  error
	lastParams   billing.CheckoutParams
	products     []billing.Product
	listErr      error
	prices       []string
	updatedNames []string
	archived     []string
	nextID       int
}

func (f *fakeBilling) CreateCheckoutSession(_ context.Context, p billing.CheckoutParams) (*billing.CheckoutSession, error) {
	f.lastParams = p
	return &billing.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func (f *fakeBilling) GetCheckoutSession(context.Context, string) (*billing.CompletedCheckout, error) {
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	if f.checkout == nil {
		return nil, errors.New("no checkout configured")
	}
	return f.checkout, nil
}

func (f *fakeBilling) CreatePaymentIntent(_ context.Context, amount int64, currency string) (string, error) {
	return "pi_secret_" + currency, nil
}

func (f *fakeBilling) CreateProduct(context.Context, string, billing.PlanMetadata) (string, error) {
	f.nextID++
	return "prod_" + string(rune('0'+f.nextID)), nil
}

func (f *fakeBilling) UpdateProduct(_ context.Context, _, name string, _ billing.PlanMetadata) error {
	f.updatedNames = append(f.updatedNames, name)
	return nil
}

func (f *fakeBilling) ArchiveProduct(_ context.Context, id string) error {
	f.archived = append(f.archived, id)
	return nil
}

func (f *fakeBilling) CreatePrice(_ context.Context, productID string, unitAmount int64, currency, interval string) (string, error) {
	id := "price_" + productID + "_" + currency + "_" + interval
	f.prices = append(f.prices, id)
	return id, nil
}

func (f *fakeBilling) ListProducts(context.Context) ([]billing.Product, error) {
	return f.products, f.listErr
}

func (f *fakeBilling) ListPrices(context.Context, string) ([]billing.Price, error) {
	return nil, nil
}
