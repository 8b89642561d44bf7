package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"erpsaas/internal/api/v1/router"
	"erpsaas/internal/config"
	"erpsaas/internal/logger"
	"erpsaas/internal/orchestrator/provisioning"

	"github.com/joho/godotenv"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "", "Orchestrator mode: provisioning")
	flag.Parse()

	// Load environment variables and config
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

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svcs, err := router.BuildServices(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to build services: %v", err)
	}
	defer func() {
		closeCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := svcs.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("Error releasing backing services")
		}
	}()

	// Dispatch to the selected orchestrator
	var runErr error
	switch *mode {
	case "provisioning":
		runErr = provisioning.Run(ctx, logger, svcs.Runs, svcs.Provisioning, cfg)
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s orchestrator failed: %v", *mode, runErr)
	}

	logger.Info().Msgf("%s orchestrator stopped gracefully", *mode)
}
