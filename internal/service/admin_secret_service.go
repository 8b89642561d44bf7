package service

import (
	"context"
	"errors"
	"strings"

	"erpsaas/internal/apperr"
	"erpsaas/internal/config"
	"erpsaas/internal/erp"
	"erpsaas/internal/model"
	"erpsaas/internal/repository"

	"github.com/rs/zerolog"
)

// AdminSecretService manages the credentials singleton and resolves the
// credentials the ERP and billing adapters use on every call.
type AdminSecretService interface {
	Get(ctx context.Context) (*model.AdminSecret, error)
	Update(ctx context.Context, in AdminSecretInput) (*model.AdminSecret, error)
	ERPCredentials(ctx context.Context) (erp.Credentials, error)
	BillingSecretKey(ctx context.Context) (string, error)
}

// AdminSecretInput carries the fields to change. Nil fields are kept.
type AdminSecretInput struct {
	APIURL        *string `validate:"omitempty,url"`
	APIToken      *string
	BillingSecret *string
}

type adminSecretService struct {
	repo   repository.AdminSecretRepository
	cfg    *config.Config
	logger zerolog.Logger
}

func NewAdminSecretService(repo repository.AdminSecretRepository, cfg *config.Config, logger zerolog.Logger) AdminSecretService {
	return &adminSecretService{
		repo:   repo,
		cfg:    cfg,
		logger: logger.With().Str("service", "AdminSecretService").Logger(),
	}
}

// Get returns the stored secret with tokens masked.
func (s *adminSecretService) Get(ctx context.Context) (*model.AdminSecret, error) {
	sec, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	masked := sec.Masked()
	return &masked, nil
}

func (s *adminSecretService) Update(ctx context.Context, in AdminSecretInput) (*model.AdminSecret, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	sec, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if in.APIURL != nil {
		sec.APIURL = strings.TrimSpace(*in.APIURL)
	}
	if in.APIToken != nil {
		sec.APIToken = strings.TrimSpace(*in.APIToken)
	}
	if in.BillingSecret != nil {
		sec.BillingSecret = strings.TrimSpace(*in.BillingSecret)
	}
	if err := s.repo.Upsert(ctx, sec); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save admin secret")
		return nil, err
	}
	s.logger.Info().Str("api_url", sec.APIURL).Msg("Admin secret updated")
	masked := sec.Masked()
	return &masked, nil
}

// current returns the stored secret, or an empty one when none has been saved.
func (s *adminSecretService) current(ctx context.Context) (*model.AdminSecret, error) {
	sec, err := s.repo.Get(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		return &model.AdminSecret{Key: model.AdminSecretKey}, nil
	}
	return sec, err
}

// ERPCredentials prefers the stored secret and falls back to environment
// configuration field by field.
func (s *adminSecretService) ERPCredentials(ctx context.Context) (erp.Credentials, error) {
	sec, err := s.current(ctx)
	if err != nil {
		return erp.Credentials{}, err
	}
	creds := erp.Credentials{BaseURL: sec.APIURL, Token: sec.APIToken}
	if creds.BaseURL == "" {
		creds.BaseURL = s.cfg.ERPAPIURL
	}
	if creds.Token == "" {
		creds.Token = s.cfg.ERPAPIToken
	}
	return creds, nil
}

func (s *adminSecretService) BillingSecretKey(ctx context.Context) (string, error) {
	sec, err := s.current(ctx)
	if err != nil {
		return "", err
	}
	if sec.BillingSecret != "" {
		return sec.BillingSecret, nil
	}
	return s.cfg.StripeSecretKey, nil
}
