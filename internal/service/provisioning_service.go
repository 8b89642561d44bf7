package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"erpsaas/internal/apperr"
	"erpsaas/internal/config"
	"erpsaas/internal/erp"
	"erpsaas/internal/mailer"
	"erpsaas/internal/model"
	"erpsaas/internal/pubsub"
	"erpsaas/internal/repository"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	milestonePercent = 25
	employmentType   = "Full-time"
	maxAbbrLength    = 5
	errNoEmployeeID  = "create_employee returned no employee id"
)

// EventEmitter publishes domain events. Implementations must not block for long.
type EventEmitter interface {
	Emit(ctx context.Context, eventType string, data any) error
}

// ProvisioningService registers tenants and mirrors them into the ERP.
type ProvisioningService interface {
	Register(ctx context.Context, in RegisterInput) (*ProvisioningResult, error)
	Resume(ctx context.Context, runID string) (*ProvisioningResult, error)
	LatestRun(ctx context.Context, email string) (*model.ProvisioningRun, error)
}

// RegisterInput is the registration request. Optional company fields are
// forwarded to the ERP when present.
type RegisterInput struct {
	Email       string `validate:"required,email"`
	Password    string `validate:"required"`
	CompanyName string `validate:"required"`
	FirstName   string `validate:"required"`
	LastName    string `validate:"required"`

	Username        string
	Country         string
	Currency        string
	Abbr            string
	TaxID           string
	Domain          string
	EstablishedDate string

	Gender        string
	DateOfBirth   string `validate:"omitempty,datetime=2006-01-02"`
	DateOfJoining string `validate:"omitempty,datetime=2006-01-02"`
}

func (in *RegisterInput) normalize() {
	in.Email = normalizeEmail(in.Email)
	for _, f := range []*string{
		&in.CompanyName, &in.FirstName, &in.LastName, &in.Username, &in.Country, &in.Currency,
		&in.Abbr, &in.TaxID, &in.Domain, &in.EstablishedDate, &in.Gender, &in.DateOfBirth, &in.DateOfJoining,
	} {
		*f = strings.TrimSpace(*f)
	}
	if strings.TrimSpace(in.Password) == "" {
		in.Password = ""
	}
}

// NotificationOutcome reports whether the best-effort welcome email went out.
type NotificationOutcome struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

// ProvisioningResult is returned by Register and Resume.
type ProvisioningResult struct {
	TenantID      string                           `json:"tenantId"`
	RunID         string                           `json:"runId,omitempty"`
	Status        model.RunStatus                  `json:"status"`
	Steps         []model.StepRecord               `json:"steps"`
	Snapshot      *model.ProfileCompletionSnapshot `json:"snapshot,omitempty"`
	SnapshotError string                           `json:"snapshotError,omitempty"`
	Notification  *NotificationOutcome             `json:"notification,omitempty"`
}

type provisioningService struct {
	users    repository.UserRepository
	runs     repository.ProvisioningRepository
	profiles repository.ProfileCompletionRepository
	erp      erp.Client
	mail     mailer.Sender
	events   EventEmitter
	cfg      *config.Config
	logger   zerolog.Logger

	now          func() time.Time
	tempPassword func() (string, error)
}

func NewProvisioningService(
	users repository.UserRepository,
	runs repository.ProvisioningRepository,
	profiles repository.ProfileCompletionRepository,
	erpClient erp.Client,
	mail mailer.Sender,
	events EventEmitter,
	cfg *config.Config,
	logger zerolog.Logger,
) ProvisioningService {
	return &provisioningService{
		users:        users,
		runs:         runs,
		profiles:     profiles,
		erp:          erpClient,
		mail:         mail,
		events:       events,
		cfg:          cfg,
		logger:       logger.With().Str("service", "ProvisioningService").Logger(),
		now:          func() time.Time { return time.Now().UTC() },
		tempPassword: newTempPassword,
	}
}

// Register validates the request, stores the tenant account and runs every
// ERP provisioning step. Remote failures never fail the call: they are
// recorded on the run and the result status becomes partial.
func (s *provisioningService) Register(ctx context.Context, in RegisterInput) (*ProvisioningResult, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkSecretLength("password", in.Password); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		s.logger.Error().Err(err).Str("email", in.Email).Msg("Failed to check existing tenant")
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("email %s is already registered", in.Email)
	}

	hash, err := hashSecret(in.Password)
	if err != nil {
		return nil, apperr.Internal("register tenant", err)
	}
	now := s.now()
	acct := &model.TenantAccount{
		Email:           in.Email,
		Username:        in.Username,
		CompanyName:     in.CompanyName,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		PasswordHash:    hash,
		Country:         in.Country,
		Currency:        in.Currency,
		Abbr:            in.Abbr,
		TaxID:           in.TaxID,
		Domain:          in.Domain,
		EstablishedDate: in.EstablishedDate,
		Role:            model.RoleUser,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.users.Create(ctx, acct); err != nil {
		s.logger.Error().Err(err).Str("email", in.Email).Msg("Failed to store tenant account")
		return nil, err
	}
	log := s.logger.With().Str("email", acct.Email).Str("tenant_id", acct.ID.Hex()).Logger()
	log.Info().Msg("Tenant account created")

	tempPassword, err := s.tempPassword()
	if err != nil {
		return nil, apperr.Internal("generate temporary password", err)
	}

	run := &model.ProvisioningRun{
		Email:     acct.Email,
		TenantID:  acct.ID,
		Status:    model.RunStatusRunning,
		Input:     s.provisioningInput(in),
		Steps:     newStepRecords(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		log.Error().Err(err).Msg("Failed to record provisioning run; continuing without it")
	}

	s.execute(ctx, run, tempPassword, func(model.StepRecord) bool { return true })
	s.persistRun(ctx, run)

	result := &ProvisioningResult{
		TenantID: acct.ID.Hex(),
		Status:   run.Status,
		Steps:    run.Steps,
	}
	if !run.ID.IsZero() {
		result.RunID = run.ID.Hex()
	}

	snap := &model.ProfileCompletionSnapshot{
		Email:              acct.Email,
		CompanyCreation:    model.Milestone{Done: true, Percent: milestonePercent},
		UserCreation:       model.Milestone{Done: true, Percent: milestonePercent},
		EmployeeCreation:   model.Milestone{Done: true, Percent: milestonePercent},
		AssignmentCreation: model.Milestone{Done: true, Percent: milestonePercent},
		CreatedAt:          s.now(),
	}
	if err := s.profiles.Create(ctx, snap); err != nil {
		log.Error().Err(err).Msg("Failed to store profile completion snapshot")
		result.SnapshotError = apperr.PublicMessage(err)
	} else {
		result.Snapshot = snap
	}

	result.Notification = s.sendWelcome(ctx, acct, tempPassword)

	s.emit(ctx, pubsub.EventTenantRegistered, map[string]any{
		"tenantId":    result.TenantID,
		"runId":       result.RunID,
		"email":       acct.Email,
		"companyName": acct.CompanyName,
		"status":      result.Status,
	})

	log.Info().Str("run_status", string(run.Status)).Bool("notified", result.Notification.Sent).Msg("Tenant registration finished")
	return result, nil
}

// Resume re-runs the failed and skipped steps of a stored run.
func (s *provisioningService) Resume(ctx context.Context, runID string) (*ProvisioningResult, error) {
	id, err := bson.ObjectIDFromHex(runID)
	if err != nil {
		return nil, apperr.Validation("invalid run id %q", runID)
	}
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &ProvisioningResult{TenantID: run.TenantID.Hex(), RunID: run.ID.Hex()}
	if run.Status == model.RunStatusCompleted {
		result.Status, result.Steps = run.Status, run.Steps
		return result, nil
	}

	acct, err := s.users.GetByEmail(ctx, run.Email)
	if err != nil {
		return nil, err
	}

	pending := func(st model.StepRecord) bool { return st.Status != model.StepStatusSucceeded }
	reissue := false
	if st := run.Step(model.StepSetDefaultPassword); st != nil && pending(*st) {
		reissue = true
	}
	var tempPassword string
	if reissue {
		if tempPassword, err = s.tempPassword(); err != nil {
			return nil, apperr.Internal("generate temporary password", err)
		}
	}

	run.Resumes++
	s.execute(ctx, run, tempPassword, pending)
	s.persistRun(ctx, run)

	result.Status, result.Steps = run.Status, run.Steps
	if st := run.Step(model.StepSetDefaultPassword); reissue && st != nil && st.Status == model.StepStatusSucceeded {
		result.Notification = s.sendWelcome(ctx, acct, tempPassword)
	}
	s.logger.Info().
		Str("run_id", runID).
		Int("resumes", run.Resumes).
		Str("run_status", string(run.Status)).
		Msg("Provisioning run resumed")
	return result, nil
}

func (s *provisioningService) LatestRun(ctx context.Context, email string) (*model.ProvisioningRun, error) {
	return s.runs.LatestForEmail(ctx, normalizeEmail(email))
}

func (s *provisioningService) provisioningInput(in RegisterInput) model.ProvisioningInput {
	pi := model.ProvisioningInput{
		CompanyName:     in.CompanyName,
		Abbr:            in.Abbr,
		Currency:        in.Currency,
		Country:         in.Country,
		TaxID:           in.TaxID,
		Domain:          in.Domain,
		EstablishedDate: in.EstablishedDate,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Gender:          in.Gender,
		DateOfBirth:     in.DateOfBirth,
		DateOfJoining:   in.DateOfJoining,
	}
	if pi.Abbr == "" {
		pi.Abbr = companyAbbr(pi.CompanyName)
	}
	if pi.Gender == "" {
		pi.Gender = s.cfg.EmployeeDefaultGender
	}
	if pi.DateOfBirth == "" {
		pi.DateOfBirth = s.cfg.EmployeeDefaultDOB
	}
	if pi.DateOfJoining == "" {
		pi.DateOfJoining = s.now().Format(dateOnlyLayout)
	}
	return pi
}

func newStepRecords() []model.StepRecord {
	steps := make([]model.StepRecord, len(model.ProvisioningSteps))
	for i, name := range model.ProvisioningSteps {
		steps[i] = model.StepRecord{Name: name, Status: model.StepStatusPending}
	}
	return steps
}

type stepFunc func(ctx context.Context, run *model.ProvisioningRun, tempPassword string) (json.RawMessage, error)

// errSkipStep marks a step whose prerequisite produced nothing to act on.
var errSkipStep = errors.New("step skipped")

func (s *provisioningService) steps() map[string]stepFunc {
	return map[string]stepFunc{
		model.StepCreateCompany: func(ctx context.Context, run *model.ProvisioningRun, _ string) (json.RawMessage, error) {
			in := run.Input
			return s.erp.CreateCompany(ctx, erp.Company{
				CompanyName:         in.CompanyName,
				Abbr:                in.Abbr,
				DefaultCurrency:     in.Currency,
				Country:             in.Country,
				TaxID:               in.TaxID,
				Domain:              in.Domain,
				DateOfEstablishment: in.EstablishedDate,
			})
		},
		model.StepCreateUser: func(ctx context.Context, run *model.ProvisioningRun, _ string) (json.RawMessage, error) {
			return s.erp.CreateUser(ctx, erp.User{
				Email:     run.Email,
				FirstName: run.Input.FirstName,
				LastName:  run.Input.LastName,
				Enabled:   1,
			})
		},
		model.StepCreateEmployee: func(ctx context.Context, run *model.ProvisioningRun, _ string) (json.RawMessage, error) {
			in := run.Input
			id, raw, err := s.erp.CreateEmployee(ctx, erp.Employee{
				EmployeeName:   strings.TrimSpace(in.FirstName + " " + in.LastName),
				FirstName:      in.FirstName,
				LastName:       in.LastName,
				Gender:         in.Gender,
				DateOfBirth:    in.DateOfBirth,
				DateOfJoining:  in.DateOfJoining,
				Company:        in.CompanyName,
				EmploymentType: employmentType,
			})
			if err == nil {
				run.EmployeeID = id
			}
			return raw, err
		},
		model.StepUpdateEmployee: func(ctx context.Context, run *model.ProvisioningRun, _ string) (json.RawMessage, error) {
			if run.EmployeeID == "" {
				return nil, errSkipStep
			}
			return s.erp.UpdateEmployee(ctx, run.EmployeeID, map[string]any{"user_id": run.Email})
		},
		model.StepSetDefaultPassword: func(ctx context.Context, run *model.ProvisioningRun, tempPassword string) (json.RawMessage, error) {
			if _, err := s.erp.UpdateUser(ctx, run.Email, map[string]any{"new_password": tempPassword}); err != nil {
				return nil, err
			}
			// the ERP echoes the user document; keep the password out of the run record
			return json.RawMessage(`{"password_set":true}`), nil
		},
		model.StepSetUserPermission: func(ctx context.Context, run *model.ProvisioningRun, _ string) (json.RawMessage, error) {
			return s.erp.SetUserPermission(ctx, run.Email)
		},
	}
}

// execute runs, in order, every step of run accepted by selected. Each step
// is attempted once; a failure is recorded and the next step still runs.
func (s *provisioningService) execute(ctx context.Context, run *model.ProvisioningRun, tempPassword string, selected func(model.StepRecord) bool) {
	funcs := s.steps()
	for i := range run.Steps {
		st := &run.Steps[i]
		if !selected(*st) {
			continue
		}
		fn, ok := funcs[st.Name]
		if !ok {
			continue
		}
		started := s.now()
		st.StartedAt = &started
		st.Attempts++
		st.Error = ""

		raw, err := fn(ctx, run, tempPassword)
		finished := s.now()
		st.FinishedAt = &finished

		log := s.logger.With().Str("email", run.Email).Str("step", st.Name).Int("attempt", st.Attempts).Logger()
		switch {
		case errors.Is(err, errSkipStep):
			st.Status = model.StepStatusSkipped
			st.Error = errNoEmployeeID
			log.Warn().Msg("Provisioning step skipped")
		case err != nil:
			st.Status = model.StepStatusFailed
			st.Error = err.Error()
			st.Result = upstreamBody(err)
			log.Error().Err(err).Msg("Provisioning step failed")
		default:
			st.Status = model.StepStatusSucceeded
			st.Result = raw
			log.Debug().Msg("Provisioning step succeeded")
		}
	}
	run.Settle()
}

// upstreamBody keeps a remote error body when it is JSON, so callers see
// the ERP's own explanation.
func upstreamBody(err error) json.RawMessage {
	var ue *apperr.UpstreamError
	if errors.As(err, &ue) && json.Valid([]byte(ue.Message)) {
		return json.RawMessage(ue.Message)
	}
	return nil
}

func (s *provisioningService) persistRun(ctx context.Context, run *model.ProvisioningRun) {
	if run.ID.IsZero() {
		return
	}
	if err := s.runs.Save(ctx, run); err != nil {
		s.logger.Error().Err(err).Str("run_id", run.ID.Hex()).Msg("Failed to save provisioning run")
	}
}

func (s *provisioningService) sendWelcome(ctx context.Context, acct *model.TenantAccount, tempPassword string) *NotificationOutcome {
	msg, err := mailer.Welcome(acct.Email, mailer.WelcomeData{
		CompanyName:  acct.CompanyName,
		FirstName:    acct.FirstName,
		Email:        acct.Email,
		TempPassword: tempPassword,
		LoginURL:     s.cfg.LoginURL,
		SupportEmail: s.cfg.SupportEmail,
	})
	if err == nil {
		err = s.mail.Send(ctx, msg)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("email", acct.Email).Msg("Failed to send welcome email")
		return &NotificationOutcome{Sent: false, Error: err.Error()}
	}
	return &NotificationOutcome{Sent: true}
}

func (s *provisioningService) emit(ctx context.Context, eventType string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, eventType, data); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to emit event")
	}
}

// companyAbbr derives an ERP company abbreviation from the initials of name.
func companyAbbr(name string) string {
	var b strings.Builder
	for _, w := range strings.Fields(name) {
		r := []rune(w)[0]
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
		if b.Len() >= maxAbbrLength {
			break
		}
	}
	if b.Len() == 0 {
		return fmt.Sprintf("T%d", len(name))
	}
	return b.String()
}
