// Package erp is a thin adapter over the ERP's token-authenticated REST
// resource API. Base URL and token are resolved on every call so that an
// admin can rotate them without a restart.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"erpsaas/internal/apperr"

	"github.com/rs/zerolog"
)

const (
	doctypeCompany        = "Company"
	doctypeUser           = "User"
	doctypeEmployee       = "Employee"
	doctypeUserPermission = "User Permission"
	doctypePlan           = "Subscription Plan"
	doctypeCountry        = "Country"
	doctypeCurrency       = "Currency"
)

// Credentials locate and authenticate against the ERP API. BaseURL includes
// the API prefix, e.g. https://erp.example.com/api.
type Credentials struct {
	BaseURL string
	Token   string
}

// CredentialSource resolves the credentials to use for one call.
type CredentialSource interface {
	ERPCredentials(ctx context.Context) (Credentials, error)
}

// Client is the set of ERP operations used by the backend. Every method
// returns the raw response payload so callers can embed it in their results.
type Client interface {
	CreateCompany(ctx context.Context, c Company) (json.RawMessage, error)
	UpdateCompany(ctx context.Context, name string, fields map[string]any) (json.RawMessage, error)
	CreateUser(ctx context.Context, u User) (json.RawMessage, error)
	UpdateUser(ctx context.Context, id string, fields map[string]any) (json.RawMessage, error)
	GetUser(ctx context.Context, email string) (json.RawMessage, error)
	CreateEmployee(ctx context.Context, e Employee) (string, json.RawMessage, error)
	UpdateEmployee(ctx context.Context, id string, fields map[string]any) (json.RawMessage, error)
	SetUserPermission(ctx context.Context, email string) (json.RawMessage, error)
	CreatePlan(ctx context.Context, p Plan) (json.RawMessage, error)
	UpdatePlan(ctx context.Context, name string, p Plan) (json.RawMessage, error)
	SubscribeCompanyPlan(ctx context.Context, company, plan string) (json.RawMessage, error)
	ListCountries(ctx context.Context) (json.RawMessage, error)
	ListCurrencies(ctx context.Context) (json.RawMessage, error)
	CompanyEmployees(ctx context.Context, company string) (json.RawMessage, error)
	Exists(ctx context.Context, field, value string) (bool, json.RawMessage, error)
}

type client struct {
	creds  CredentialSource
	http   *http.Client
	logger zerolog.Logger
}

// New returns an ERP client. timeout bounds each request; zero leaves the
// transport default in place.
func New(creds CredentialSource, timeout time.Duration, logger zerolog.Logger) Client {
	return &client{
		creds:  creds,
		http:   &http.Client{Timeout: timeout},
		logger: logger.With().Str("service", "ERPClient").Logger(),
	}
}

func (c *client) CreateCompany(ctx context.Context, co Company) (json.RawMessage, error) {
	return c.do(ctx, "create company", http.MethodPost, resourcePath(doctypeCompany), co)
}

func (c *client) UpdateCompany(ctx context.Context, name string, fields map[string]any) (json.RawMessage, error) {
	return c.do(ctx, "update company", http.MethodPut, resourcePath(doctypeCompany, name), fields)
}

func (c *client) CreateUser(ctx context.Context, u User) (json.RawMessage, error) {
	return c.do(ctx, "create user", http.MethodPost, resourcePath(doctypeUser), u)
}

func (c *client) UpdateUser(ctx context.Context, id string, fields map[string]any) (json.RawMessage, error) {
	return c.do(ctx, "update user", http.MethodPut, resourcePath(doctypeUser, id), fields)
}

func (c *client) GetUser(ctx context.Context, email string) (json.RawMessage, error) {
	return c.do(ctx, "get user", http.MethodGet, resourcePath(doctypeUser, email), nil)
}

// CreateEmployee creates the employee and returns its document name, which
// later updates are addressed by.
func (c *client) CreateEmployee(ctx context.Context, e Employee) (string, json.RawMessage, error) {
	raw, err := c.do(ctx, "create employee", http.MethodPost, resourcePath(doctypeEmployee), e)
	if err != nil {
		return "", raw, err
	}
	var doc struct {
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Data.Name == "" {
		return "", raw, &apperr.UpstreamError{Service: "erp", Op: "create employee", Message: "response carries no employee name"}
	}
	return doc.Data.Name, raw, nil
}

func (c *client) UpdateEmployee(ctx context.Context, id string, fields map[string]any) (json.RawMessage, error) {
	return c.do(ctx, "update employee", http.MethodPut, resourcePath(doctypeEmployee, id), fields)
}

// SetUserPermission restricts the user to records that belong to itself.
func (c *client) SetUserPermission(ctx context.Context, email string) (json.RawMessage, error) {
	body := UserPermission{
		User:               email,
		Allow:              "User",
		ForValue:           email,
		ApplyToAllDoctypes: 1,
	}
	return c.do(ctx, "set user permission", http.MethodPost, resourcePath(doctypeUserPermission), body)
}

func (c *client) CreatePlan(ctx context.Context, p Plan) (json.RawMessage, error) {
	return c.do(ctx, "create plan", http.MethodPost, resourcePath(doctypePlan), p)
}

func (c *client) UpdatePlan(ctx context.Context, name string, p Plan) (json.RawMessage, error) {
	return c.do(ctx, "update plan", http.MethodPut, resourcePath(doctypePlan, name), p)
}

func (c *client) SubscribeCompanyPlan(ctx context.Context, company, plan string) (json.RawMessage, error) {
	body := map[string]any{"custom_subscribed_plan": plan}
	return c.do(ctx, "subscribe company plan", http.MethodPut, resourcePath(doctypeCompany, company), body)
}

func (c *client) ListCountries(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, "list countries", http.MethodGet, resourcePath(doctypeCountry)+"?limit_page_length=0", nil)
}

func (c *client) ListCurrencies(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, "list currencies", http.MethodGet, resourcePath(doctypeCurrency)+"?limit_page_length=0", nil)
}

func (c *client) CompanyEmployees(ctx context.Context, company string) (json.RawMessage, error) {
	q, err := filterQuery("company", company, true)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, "list company employees", http.MethodGet, resourcePath(doctypeEmployee)+"?"+q, nil)
}

// Exists reports whether a user (field email or username) or a company (any
// other field) matches value.
func (c *client) Exists(ctx context.Context, field, value string) (bool, json.RawMessage, error) {
	doctype := doctypeCompany
	if field == "email" || field == "username" {
		doctype = doctypeUser
	}
	q, err := filterQuery(field, value, false)
	if err != nil {
		return false, nil, err
	}
	raw, err := c.do(ctx, "check "+strings.ToLower(doctype), http.MethodGet, resourcePath(doctype)+"?"+q, nil)
	if err != nil {
		return false, raw, err
	}
	var list struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return false, raw, &apperr.UpstreamError{Service: "erp", Op: "check " + strings.ToLower(doctype), Message: "unexpected response shape"}
	}
	return len(list.Data) > 0, raw, nil
}

func (c *client) do(ctx context.Context, op, method, path string, body any) (json.RawMessage, error) {
	creds, err := c.creds.ERPCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve erp credentials: %w", err)
	}
	if creds.BaseURL == "" {
		return nil, &apperr.UpstreamError{Service: "erp", Op: op, Message: "ERP API URL is not configured"}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := strings.TrimRight(creds.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "token "+creds.Token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("op", op).Msg("ERP request failed")
		return nil, apperr.Upstream("erp", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream("erp", op, fmt.Errorf("reading response: %w", err))
	}

	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Int("status_code", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("ERP request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().
			Str("op", op).
			Int("status_code", resp.StatusCode).
			Str("error_body", string(respBody)).
			Msg("ERP returned error")
		return nil, &apperr.UpstreamError{Service: "erp", Op: op, Status: resp.StatusCode, Message: string(respBody)}
	}
	if len(respBody) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(respBody), nil
}

func resourcePath(doctype string, name ...string) string {
	p := "/resource/" + url.PathEscape(doctype)
	for _, n := range name {
		p += "/" + url.PathEscape(n)
	}
	return p
}

// filterQuery renders the ERP list filter syntax: filters=[["field","=","value"]].
func filterQuery(field, value string, allFields bool) (string, error) {
	filters, err := json.Marshal([][]string{{field, "=", value}})
	if err != nil {
		return "", fmt.Errorf("marshaling filters: %w", err)
	}
	q := url.Values{}
	q.Set("filters", string(filters))
	if allFields {
		q.Set("fields", `["*"]`)
	}
	return q.Encode(), nil
}
