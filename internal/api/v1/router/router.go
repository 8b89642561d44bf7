package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"erpsaas/docs"
	"erpsaas/internal/api/v1/handler"
	"erpsaas/internal/config"
	"erpsaas/internal/middleware"
	"erpsaas/internal/repository"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/swaggo/swag"
)

const healthTimeout = 2 * time.Second

// New wires the services into the v1 HTTP API.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, *Services, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	svcs, err := BuildServices(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	h := Handler(cfg, svcs, logger)
	logger.Info().Msg("Router initialized")
	return h, svcs, nil
}

// Handler builds the HTTP handler over already constructed services.
func Handler(cfg *config.Config, svcs *Services, logger zerolog.Logger) http.Handler {
	validate := handler.NewValidator()
	authMiddleware := middleware.AuthMiddleware(cfg.AdminJWTSecret, logger)

	webhookEnabled := cfg.StripeWebhookSecret != ""
	if !webhookEnabled {
		logger.Info().Msg("No webhook secret configured; billing webhook route disabled")
	}

	type routeRegistrar interface {
		RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler)
	}
	registrars := []routeRegistrar{
		handler.NewProvisioningHandler(svcs.Provisioning, validate, logger),
		handler.NewUserHandler(svcs.Users, validate, logger),
		handler.NewSubscriptionHandler(svcs.Subscriptions, validate, webhookEnabled, logger),
		handler.NewPlanHandler(svcs.Plans, validate, logger),
		handler.NewAdminHandler(svcs.AdminSecrets, validate, logger),
		handler.NewPaymentHandler(svcs.Payments, validate, logger),
		handler.NewERPHandler(svcs.ERP, logger),
	}

	apiV1Mux := http.NewServeMux()
	for _, r := range registrars {
		r.RegisterRoutes(apiV1Mux, authMiddleware)
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	var health func(context.Context) error
	if svcs.Mongo != nil {
		health = repository.Healthcheck(svcs.Mongo)
	}
	mux.HandleFunc("GET /healthz", healthz(health))

	mux.HandleFunc("GET /swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
		if err != nil {
			http.Error(w, "swagger doc unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	})

	// Redirect /api/* to /v1/* for backward compatibility
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/")
		http.Redirect(w, r, withQuery("/v1/"+rest, r), http.StatusPermanentRedirect)
	})

	// Redirect all other root-level requests (e.g. the checkout targets) to /v1/{path}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || strings.HasPrefix(r.URL.Path, "/v1/") || strings.HasPrefix(r.URL.Path, "/swagger/") {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, withQuery("/v1"+r.URL.Path, r), http.StatusPermanentRedirect)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux))
}

func withQuery(path string, r *http.Request) string {
	if r.URL.RawQuery == "" {
		return path
	}
	return path + "?" + r.URL.RawQuery
}

func healthz(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
