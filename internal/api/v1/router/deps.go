package router

import (
	"context"
	"fmt"

	"erpsaas/internal/billing"
	"erpsaas/internal/config"
	"erpsaas/internal/erp"
	"erpsaas/internal/mailer"
	"erpsaas/internal/pubsub"
	"erpsaas/internal/repository"
	"erpsaas/internal/service"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const adminSecretBackendSecretManager = "secretmanager"

// Services is the wired service layer shared by the API and the orchestrators.
type Services struct {
	Mongo         *mongo.Client
	Provisioning  service.ProvisioningService
	Subscriptions service.SubscriptionService
	Users         service.UserService
	Plans         service.PlanService
	Payments      service.PaymentService
	AdminSecrets  service.AdminSecretService
	ERP           service.ERPService
	Runs          repository.ProvisioningRepository

	closers []func(context.Context) error
}

// Close releases every client opened by BuildServices.
func (s *Services) Close(ctx context.Context) error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildServices connects the document store and constructs every adapter
// and service once.
func BuildServices(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Services, error) {
	s := &Services{}

	client, err := repository.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	s.Mongo = client
	s.closers = append(s.closers, client.Disconnect)
	logger.Info().Str("database", cfg.MongoDatabase).Msg("MongoDB connection successful")

	db := client.Database(cfg.MongoDatabase)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		_ = s.Close(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	adminSecretRepo, err := s.adminSecretRepo(ctx, cfg, db, logger)
	if err != nil {
		_ = s.Close(ctx)
		return nil, err
	}

	events, err := s.eventEmitter(ctx, cfg, logger)
	if err != nil {
		_ = s.Close(ctx)
		return nil, err
	}

	mail, err := mailer.New(cfg, logger)
	if err != nil {
		_ = s.Close(ctx)
		return nil, err
	}

	userRepo := repository.NewUserRepo(db)
	subRepo := repository.NewSubscriptionRepo(db)
	profileRepo := repository.NewProfileCompletionRepo(db)
	otpRepo := repository.NewOTPRepo(db)
	planRepo := repository.NewPlanRepo(db)
	s.Runs = repository.NewProvisioningRepo(db)

	s.AdminSecrets = service.NewAdminSecretService(adminSecretRepo, cfg, logger)
	erpClient := erp.New(s.AdminSecrets, cfg.ERPTimeout, logger)
	billingClient := billing.NewStripe(s.AdminSecrets, logger)

	s.Provisioning = service.NewProvisioningService(userRepo, s.Runs, profileRepo, erpClient, mail, events, cfg, logger)
	s.Subscriptions = service.NewSubscriptionService(subRepo, userRepo, billingClient, erpClient, mail, events, cfg, logger)
	s.Users = service.NewUserService(userRepo, profileRepo, otpRepo, erpClient, mail, cfg, logger)
	s.Plans = service.NewPlanService(planRepo, billingClient, erpClient, logger)
	s.Payments = service.NewPaymentService(billingClient, cfg, logger)
	s.ERP = service.NewERPService(erpClient)
	return s, nil
}

func (s *Services) adminSecretRepo(ctx context.Context, cfg *config.Config, db *mongo.Database, logger zerolog.Logger) (repository.AdminSecretRepository, error) {
	if cfg.AdminSecretBackend != adminSecretBackendSecretManager {
		return repository.NewAdminSecretRepo(db), nil
	}
	repo, closeFn, err := repository.NewSecretManagerAdminSecretRepo(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("admin secret backend: %w", err)
	}
	s.closers = append(s.closers, func(context.Context) error { return closeFn() })
	logger.Info().Str("secret", cfg.AdminSecretName).Msg("Admin secret stored in Secret Manager")
	return repo, nil
}

func (s *Services) eventEmitter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (service.EventEmitter, error) {
	if cfg.GCPProjectID == "" {
		logger.Info().Msg("No GCP project configured; domain events are dropped")
		return pubsub.NewEventPublisher(pubsub.NoopPublisher{}, cfg.PubSubEventsTopic, logger), nil
	}
	pub, err := pubsub.NewPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func(context.Context) error { return pub.Close() })
	return pubsub.NewEventPublisher(pub, cfg.PubSubEventsTopic, logger), nil
}
