package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"erpsaas/internal/apperr"
	"erpsaas/internal/erp"
)

// ERPService exposes read-only ERP lookups to the API.
type ERPService interface {
	Countries(ctx context.Context) (json.RawMessage, error)
	Currencies(ctx context.Context) (json.RawMessage, error)
	// Check reports whether a user (field email or username) or a company
	// (any other field) with the given value exists in the ERP.
	Check(ctx context.Context, field, value string) (bool, json.RawMessage, error)
	CompanyEmployees(ctx context.Context, company string) (json.RawMessage, error)
}

type erpService struct {
	erp erp.Client
}

func NewERPService(c erp.Client) ERPService {
	return &erpService{erp: c}
}

func (s *erpService) Countries(ctx context.Context) (json.RawMessage, error) {
	return s.erp.ListCountries(ctx)
}

func (s *erpService) Currencies(ctx context.Context) (json.RawMessage, error) {
	return s.erp.ListCurrencies(ctx)
}

func (s *erpService) Check(ctx context.Context, field, value string) (bool, json.RawMessage, error) {
	field, value = strings.TrimSpace(field), strings.TrimSpace(value)
	if field == "" || value == "" {
		return false, nil, apperr.Validation("name and value are required")
	}
	if field == "email" {
		return s.userExists(ctx, normalizeEmail(value))
	}
	return s.erp.Exists(ctx, field, value)
}

// userExists reads the user document directly; ERP users are named by email.
func (s *erpService) userExists(ctx context.Context, email string) (bool, json.RawMessage, error) {
	raw, err := s.erp.GetUser(ctx, email)
	var upstream *apperr.UpstreamError
	if errors.As(err, &upstream) && upstream.Status == http.StatusNotFound {
		return false, raw, nil
	}
	if err != nil {
		return false, raw, err
	}
	return true, raw, nil
}

func (s *erpService) CompanyEmployees(ctx context.Context, company string) (json.RawMessage, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, apperr.Validation("company is required")
	}
	return s.erp.CompanyEmployees(ctx, company)
}
