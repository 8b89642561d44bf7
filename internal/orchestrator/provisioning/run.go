package provisioning

import (
	"context"
	"time"

	"erpsaas/internal/config"
	"erpsaas/internal/model"
	"erpsaas/internal/service"

	"github.com/rs/zerolog"
)

// RunLister finds partial runs that are due for another attempt.
type RunLister interface {
	ListResumable(ctx context.Context, maxResumes, limit int, olderThan time.Time) ([]model.ProvisioningRun, error)
}

// Resumer re-runs the unfinished steps of a run.
type Resumer interface {
	Resume(ctx context.Context, runID string) (*service.ProvisioningResult, error)
}

// Run starts the provisioning orchestrator. Every poll interval it resumes a
// batch of partial runs untouched for at least one interval.
func Run(ctx context.Context, logger zerolog.Logger, runs RunLister, svc Resumer, cfg *config.Config) error {
	logger = logger.With().Str("orchestrator", "provisioning").Logger()
	logger.Info().
		Dur("interval", cfg.ProvisioningPollInterval).
		Int("max_attempts", cfg.ProvisioningMaxAttempts).
		Msg("Starting provisioning orchestrator")

	ticker := time.NewTicker(cfg.ProvisioningPollInterval)
	defer ticker.Stop()
	for {
		if _, err := Sweep(ctx, logger, runs, svc, cfg, time.Now()); err != nil {
			logger.Error().Err(err).Msg("Error listing resumable runs")
		}
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down provisioning orchestrator")
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep performs one pass and reports how many runs finished completed.
// A failing run is logged and does not stop the pass.
func Sweep(ctx context.Context, logger zerolog.Logger, runs RunLister, svc Resumer, cfg *config.Config, now time.Time) (int, error) {
	due, err := runs.ListResumable(ctx, cfg.ProvisioningMaxAttempts, cfg.ProvisioningBatchSize, now.Add(-cfg.ProvisioningPollInterval))
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, run := range due {
		if ctx.Err() != nil {
			break
		}
		log := logger.With().Str("run_id", run.ID.Hex()).Str("email", run.Email).Logger()
		res, err := svc.Resume(ctx, run.ID.Hex())
		if err != nil {
			log.Error().Err(err).Msg("Resume failed")
			continue
		}
		if res.Status == model.RunStatusCompleted {
			completed++
		}
		log.Info().Str("status", string(res.Status)).Msg("Run resumed")
	}
	return completed, nil
}
