package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"erpsaas/internal/api/v1/router"
	"erpsaas/internal/config"
	"erpsaas/internal/logger"
	"erpsaas/internal/model"

	"github.com/joho/godotenv"
)

// @title ERP SaaS API
// @version 1.0
// @description Tenant onboarding, ERP provisioning and subscription billing
// @host localhost:5000
// @BasePath /v1
// @Schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// responseHeadroom covers the store writes and mail delivery around the ERP calls.
const responseHeadroom = 30 * time.Second

// writeTimeout leaves room for a registration whose every ERP step runs to
// the client timeout, so a slow ERP still gets its 201 written.
func writeTimeout(cfg *config.Config) time.Duration {
	return time.Duration(len(model.ProvisioningSteps))*cfg.ERPTimeout + responseHeadroom
}

func main() {
	// 1. Load configuration
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("production", "info")
		boot.Fatal().Msgf("Error loading config: %v", err)
	}

	logger := logger.New(cfg.Environment, cfg.LogLevel)
	if envErr != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	// 2. Build router and its backing services
	ctx := context.Background()
	r, svcs, err := router.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to build router: %v", err)
	}

	// 3. Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	// 4. Start server in a goroutine
	go func() {
		logger.Info().Msgf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Msgf("Listen: %s", err)
		}
	}()

	// 5. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutdown signal received, exiting...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := svcs.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error releasing backing services")
	}
	logger.Info().Msg("Server shut down gracefully")
}
