package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"erpsaas/internal/apperr"
	"erpsaas/internal/billing"
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
	defaultCurrency  = "USD"
	defaultPeriod    = 30 * 24 * time.Hour
	defaultPageLimit = 50
	maxPageLimit     = 200
	dateOnlyLayout   = "2006-01-02"
	endOfDay         = 24*time.Hour - time.Millisecond
	statusFilterAll  = "all"
)

// SubscriptionService defines business logic methods for subscriptions.
type SubscriptionService interface {
	Store(ctx context.Context, in StoreSubscriptionInput) (*model.Subscription, error)
	ListByEmail(ctx context.Context, email string) ([]model.Subscription, error)
	Current(ctx context.Context, email string) (*model.Subscription, error)
	Update(ctx context.Context, id string, in UpdateSubscriptionInput) (*model.Subscription, error)
	AdminList(ctx context.Context, q AdminListQuery) (*model.SubscriptionPage, error)
	// CompleteCheckout records the subscription of a finished checkout
	// session. created is false when the session was already recorded.
	CompleteCheckout(ctx context.Context, sessionID string) (sub *model.Subscription, created bool, err error)
	ApplyWebhook(ctx context.Context, payload []byte, signature string) error
}

type StoreSubscriptionInput struct {
	Email              string `validate:"required,email"`
	PlanName           string `validate:"required"`
	SessionID          string `validate:"required"`
	UserID             string
	PriceID            string
	Amount             int64  `validate:"gte=0"`
	Currency           string `validate:"omitempty,len=3"`
	Status             string `validate:"omitempty,oneof=active canceled past_due incomplete trialing unpaid"`
	SubscriptionID     string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

type UpdateSubscriptionInput struct {
	Status           string `validate:"omitempty,oneof=active canceled past_due incomplete trialing unpaid"`
	CurrentPeriodEnd *time.Time
}

// AdminListQuery holds the raw admin listing parameters as received.
type AdminListQuery struct {
	Status    string
	Customer  string
	StartDate string
	EndDate   string
	Page      string
	Limit     string
}

type subscriptionService struct {
	repo    repository.SubscriptionRepository
	users   repository.UserRepository
	billing billing.Client
	erp     erp.Client
	mail    mailer.Sender
	events  EventEmitter
	cfg     *config.Config
	logger  zerolog.Logger
	now     func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	users repository.UserRepository,
	billingClient billing.Client,
	erpClient erp.Client,
	mail mailer.Sender,
	events EventEmitter,
	cfg *config.Config,
	logger zerolog.Logger,
) SubscriptionService {
	return &subscriptionService{
		repo:    repo,
		users:   users,
		billing: billingClient,
		erp:     erpClient,
		mail:    mail,
		events:  events,
		cfg:     cfg,
		logger:  logger.With().Str("service", "SubscriptionService").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Store records a completed checkout. A repeated sessionId is a conflict.
func (s *subscriptionService) Store(ctx context.Context, in StoreSubscriptionInput) (*model.Subscription, error) {
	in.Email = normalizeEmail(in.Email)
	in.PlanName = strings.TrimSpace(in.PlanName)
	in.SessionID = strings.TrimSpace(in.SessionID)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := s.now()
	sub := &model.Subscription{
		UserID:             in.UserID,
		Email:              in.Email,
		PlanName:           in.PlanName,
		PriceID:            in.PriceID,
		Amount:             in.Amount,
		Currency:           strings.ToUpper(in.Currency),
		SessionID:          in.SessionID,
		Status:             in.Status,
		SubscriptionID:     in.SubscriptionID,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(defaultPeriod),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if sub.Currency == "" {
		sub.Currency = defaultCurrency
	}
	if sub.Status == "" {
		sub.Status = model.SubscriptionStatusActive
	}
	if in.CurrentPeriodStart != nil && !in.CurrentPeriodStart.IsZero() {
		sub.CurrentPeriodStart = in.CurrentPeriodStart.UTC()
	}
	if in.CurrentPeriodEnd != nil && !in.CurrentPeriodEnd.IsZero() {
		sub.CurrentPeriodEnd = in.CurrentPeriodEnd.UTC()
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("subscription for session %s already exists", in.SessionID)
		}
		s.logger.Error().Err(err).Str("session_id", in.SessionID).Msg("Failed to store subscription")
		return nil, err
	}
	s.logger.Info().Str("email", sub.Email).Str("plan", sub.PlanName).Str("session_id", sub.SessionID).Msg("Subscription stored")

	s.afterStore(ctx, sub)
	return sub, nil
}

// afterStore runs the best-effort side effects of a new subscription.
func (s *subscriptionService) afterStore(ctx context.Context, sub *model.Subscription) {
	log := s.logger.With().Str("email", sub.Email).Str("subscription_id", sub.ID.Hex()).Logger()

	msg, err := mailer.SubscriptionConfirmation(sub.Email, mailer.SubscriptionConfirmationData{
		PlanName:     sub.PlanName,
		Amount:       billing.FormatMinorUnits(sub.Amount, sub.Currency),
		Status:       sub.Status,
		PeriodEnd:    sub.CurrentPeriodEnd.Format(dateOnlyLayout),
		SupportEmail: s.cfg.SupportEmail,
	})
	if err == nil {
		err = s.mail.Send(ctx, msg)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to send subscription confirmation")
	}

	if acct, err := s.users.GetByEmail(ctx, sub.Email); err == nil {
		if _, err := s.erp.SubscribeCompanyPlan(ctx, acct.CompanyName, sub.PlanName); err != nil {
			log.Warn().Err(err).Str("company", acct.CompanyName).Msg("Failed to attach plan to ERP company")
		}
	} else if !errors.Is(err, apperr.ErrNotFound) {
		log.Warn().Err(err).Msg("Failed to look up tenant for ERP plan sync")
	}

	if s.events != nil {
		if err := s.events.Emit(ctx, pubsub.EventSubscriptionCreated, sub); err != nil {
			log.Warn().Err(err).Msg("Failed to emit subscription event")
		}
	}
}

func (s *subscriptionService) ListByEmail(ctx context.Context, email string) ([]model.Subscription, error) {
	subs, err := s.repo.ListByEmail(ctx, normalizeEmail(email))
	if err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("Failed to list subscriptions")
		return nil, err
	}
	return subs, nil
}

// Current returns the newest active subscription; NotFound when there is none.
func (s *subscriptionService) Current(ctx context.Context, email string) (*model.Subscription, error) {
	sub, err := s.repo.Current(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("no active subscription for %s", normalizeEmail(email))
		}
		s.logger.Error().Err(err).Str("email", email).Msg("Failed to fetch current subscription")
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) Update(ctx context.Context, id string, in UpdateSubscriptionInput) (*model.Subscription, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid subscription id %q", id)
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Status == "" && in.CurrentPeriodEnd == nil {
		return nil, apperr.Validation("nothing to update: status or currentPeriodEnd is required")
	}
	sub, err := s.repo.Update(ctx, oid, in.Status, in.CurrentPeriodEnd)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("subscription %s not found", id)
		}
		s.logger.Error().Err(err).Str("id", id).Msg("Failed to update subscription")
		return nil, err
	}
	return sub, nil
}

// AdminList normalizes the raw query and returns one page of subscriptions.
func (s *subscriptionService) AdminList(ctx context.Context, q AdminListQuery) (*model.SubscriptionPage, error) {
	f, err := parseAdminListQuery(q)
	if err != nil {
		return nil, err
	}
	page, err := s.repo.List(ctx, f)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list subscriptions")
		return nil, err
	}
	return page, nil
}

func parseAdminListQuery(q AdminListQuery) (model.SubscriptionFilter, error) {
	f := model.SubscriptionFilter{
		Status:   strings.TrimSpace(q.Status),
		Customer: strings.TrimSpace(q.Customer),
		Page:     1,
		Limit:    defaultPageLimit,
	}
	if f.Status == statusFilterAll {
		f.Status = ""
	}
	if n, err := strconv.Atoi(strings.TrimSpace(q.Page)); err == nil && n > 1 {
		f.Page = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(q.Limit)); err == nil && n != 0 {
		f.Limit = min(max(n, 1), maxPageLimit)
	}
	if q.StartDate != "" {
		t, err := parseBound(q.StartDate, false)
		if err != nil {
			return f, err
		}
		f.CreatedAfter = &t
	}
	if q.EndDate != "" {
		t, err := parseBound(q.EndDate, true)
		if err != nil {
			return f, err
		}
		f.CreatedBefore = &t
	}
	return f, nil
}

// parseBound accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day, up to 23:59:59.999 UTC.
func parseBound(v string, end bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(dateOnlyLayout, v); err == nil {
		if end {
			return t.Add(endOfDay), nil
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q: use YYYY-MM-DD or RFC 3339", v)
	}
	return t.UTC(), nil
}

func (s *subscriptionService) CompleteCheckout(ctx context.Context, sessionID string) (*model.Subscription, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, false, apperr.Validation("session_id is required")
	}
	if existing, err := s.repo.GetBySessionID(ctx, sessionID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	cs, err := s.billing.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if !cs.Complete() {
		return nil, false, apperr.Validation("checkout session %s is not complete (status %s)", sessionID, cs.Status)
	}

	in := StoreSubscriptionInput{
		Email:          cs.Email,
		PlanName:       cs.PlanName,
		SessionID:      cs.SessionID,
		UserID:         cs.Metadata["userId"],
		PriceID:        cs.PriceID,
		Amount:         cs.Amount,
		Currency:       cs.Currency,
		Status:         normalizeProviderStatus(cs.SubscriptionSt),
		SubscriptionID: cs.SubscriptionID,
	}
	if !cs.PeriodStart.IsZero() {
		in.CurrentPeriodStart = &cs.PeriodStart
		in.CurrentPeriodEnd = &cs.PeriodEnd
	}
	sub, err := s.Store(ctx, in)
	if errors.Is(err, apperr.ErrConflict) {
		// a concurrent redirect or client call recorded it first
		existing, getErr := s.repo.GetBySessionID(ctx, sessionID)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return sub, true, nil
}

// ApplyWebhook verifies a provider event and applies the status change it implies.
func (s *subscriptionService) ApplyWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := billing.ParseWebhook(payload, signature, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Rejected billing webhook")
		return err
	}
	log := s.logger.With().Str("event_id", ev.ID).Str("event_type", ev.Type).Logger()
	if !ev.Relevant {
		log.Debug().Msg("Ignoring billing webhook event")
		return nil
	}
	status := normalizeProviderStatus(ev.Status)
	n, err := s.repo.UpdateByProviderID(ctx, ev.SubscriptionID, status, &ev.PeriodStart, &ev.PeriodEnd)
	if err != nil {
		log.Error().Err(err).Msg("Failed to apply billing webhook")
		return err
	}
	if n == 0 {
		log.Warn().Str("provider_subscription_id", ev.SubscriptionID).Msg("Webhook refers to an unknown subscription")
		return nil
	}
	log.Info().Str("provider_subscription_id", ev.SubscriptionID).Str("status", status).Msg("Subscription status updated from webhook")
	return nil
}

// normalizeProviderStatus folds provider states outside the local set onto it.
func normalizeProviderStatus(st string) string {
	switch st {
	case "":
		return model.SubscriptionStatusActive
	case "incomplete_expired":
		return model.SubscriptionStatusCanceled
	case "paused":
		return model.SubscriptionStatusUnpaid
	default:
		return st
	}
}
