package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"erpsaas/internal/apperr"
	"erpsaas/internal/config"
	"erpsaas/internal/erp"
	"erpsaas/internal/mailer"
	"erpsaas/internal/model"
	"erpsaas/internal/repository"

	"github.com/rs/zerolog"
)

// UserService covers the tenant account operations outside registration.
type UserService interface {
	LookupRole(ctx context.Context, email string) (*RoleInfo, error)
	Customers(ctx context.Context) ([]model.Customer, error)
	Profile(ctx context.Context, email string) (*model.TenantAccount, error)
	UpdateProfile(ctx context.Context, email string, upd model.ProfileUpdate) (*model.TenantAccount, error)
	SetActive(ctx context.Context, email string, active bool) error
	ProfileCompletion(ctx context.Context, email string) (*ProfileCompletion, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) error
}

type RoleInfo struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

type ProfileCompletion struct {
	*model.ProfileCompletionSnapshot
	Total int `json:"total"`
}

type ResetPasswordInput struct {
	Email       string `validate:"required,email"`
	Code        string `validate:"required,len=6,numeric"`
	NewPassword string `validate:"required,min=8"`
}

type userService struct {
	users    repository.UserRepository
	profiles repository.ProfileCompletionRepository
	otps     repository.OTPRepository
	erp      erp.Client
	mail     mailer.Sender
	cfg      *config.Config
	logger   zerolog.Logger
	now      func() time.Time
}

func NewUserService(
	users repository.UserRepository,
	profiles repository.ProfileCompletionRepository,
	otps repository.OTPRepository,
	erpClient erp.Client,
	mail mailer.Sender,
	cfg *config.Config,
	logger zerolog.Logger,
) UserService {
	return &userService{
		users:    users,
		profiles: profiles,
		otps:     otps,
		erp:      erpClient,
		mail:     mail,
		cfg:      cfg,
		logger:   logger.With().Str("service", "UserService").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *userService) LookupRole(ctx context.Context, email string) (*RoleInfo, error) {
	acct, err := s.Profile(ctx, email)
	if err != nil {
		return nil, err
	}
	return &RoleInfo{Email: acct.Email, Role: acct.Role, IsActive: acct.IsActive}, nil
}

func (s *userService) Customers(ctx context.Context) ([]model.Customer, error) {
	customers, err := s.users.ListCustomers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list customers")
		return nil, err
	}
	return customers, nil
}

func (s *userService) Profile(ctx context.Context, email string) (*model.TenantAccount, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	acct, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("user %s not found", email)
		}
		return nil, err
	}
	return acct, nil
}

// UpdateProfile stores the changes locally and mirrors company fields to the
// ERP on a best-effort basis.
func (s *userService) UpdateProfile(ctx context.Context, email string, upd model.ProfileUpdate) (*model.TenantAccount, error) {
	email = normalizeEmail(email)
	acct, err := s.users.UpdateProfile(ctx, email, upd)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("user %s not found", email)
		}
		s.logger.Error().Err(err).Str("email", email).Msg("Failed to update profile")
		return nil, err
	}

	fields := map[string]any{}
	for key, v := range map[string]*string{
		"default_currency":      upd.Currency,
		"country":               upd.Country,
		"tax_id":                upd.TaxID,
		"domain":                upd.Domain,
		"date_of_establishment": upd.EstablishedDate,
	} {
		if v != nil {
			fields[key] = *v
		}
	}
	if len(fields) > 0 {
		if _, err := s.erp.UpdateCompany(ctx, acct.CompanyName, fields); err != nil {
			s.logger.Warn().Err(err).Str("company", acct.CompanyName).Msg("Failed to mirror profile to ERP company")
		}
	}
	return acct, nil
}

func (s *userService) SetActive(ctx context.Context, email string, active bool) error {
	email = normalizeEmail(email)
	if err := s.users.SetActive(ctx, email, active); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("user %s not found", email)
		}
		return err
	}
	s.logger.Info().Str("email", email).Bool("active", active).Msg("Account status changed")
	return nil
}

func (s *userService) ProfileCompletion(ctx context.Context, email string) (*ProfileCompletion, error) {
	email = normalizeEmail(email)
	snap, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("no profile completion for %s", email)
		}
		return nil, err
	}
	return &ProfileCompletion{ProfileCompletionSnapshot: snap, Total: snap.Total()}, nil
}

// ForgotPassword mails a one-time code. Unknown and inactive accounts get the
// same silent success so the endpoint cannot be used to probe for emails.
func (s *userService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateStruct(struct {
		Email string `validate:"required,email"`
	}{email}); err != nil {
		return err
	}
	acct, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		s.logger.Info().Str("email", email).Msg("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	if !acct.IsActive {
		s.logger.Info().Str("email", email).Msg("Password reset requested for inactive account")
		return nil
	}

	code, err := newOTP()
	if err != nil {
		return apperr.Internal("forgot password", err)
	}
	hash, err := hashSecret(code)
	if err != nil {
		return apperr.Internal("forgot password", err)
	}
	if err := s.otps.InvalidateAll(ctx, email); err != nil {
		return err
	}
	now := s.now()
	if err := s.otps.Create(ctx, &model.OTPToken{
		Email:     email,
		CodeHash:  hash,
		ExpiresAt: now.Add(s.cfg.OTPTTL),
		CreatedAt: now,
	}); err != nil {
		return err
	}

	msg, err := mailer.PasswordReset(email, mailer.PasswordResetData{Code: code, TTL: s.cfg.OTPTTL, SupportEmail: s.cfg.SupportEmail})
	if err != nil {
		return apperr.Internal("render password reset email", err)
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("Failed to send password reset code")
		return err
	}
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	in.Email = normalizeEmail(in.Email)
	in.Code = strings.TrimSpace(in.Code)
	if err := validateStruct(in); err != nil {
		return err
	}
	if err := checkSecretLength("newPassword", in.NewPassword); err != nil {
		return err
	}
	invalid := apperr.Validation("invalid or expired code")

	tok, err := s.otps.LatestValid(ctx, in.Email, s.now())
	if errors.Is(err, apperr.ErrNotFound) {
		return invalid
	}
	if err != nil {
		return err
	}
	if !checkSecret(tok.CodeHash, in.Code) {
		return invalid
	}
	if err := s.otps.MarkUsed(ctx, tok.ID); err != nil {
		return err
	}

	hash, err := hashSecret(in.NewPassword)
	if err != nil {
		return apperr.Internal("reset password", err)
	}
	if err := s.users.SetPasswordHash(ctx, in.Email, hash); err != nil {
		return err
	}
	if _, err := s.erp.UpdateUser(ctx, in.Email, map[string]any{"new_password": in.NewPassword}); err != nil {
		s.logger.Warn().Err(err).Str("email", in.Email).Msg("Failed to push new password to ERP")
	}
	s.logger.Info().Str("email", in.Email).Msg("Password reset")
	return nil
}
