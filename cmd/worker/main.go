package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"promptvault/internal/bootstrap"
	"promptvault/internal/domain"
	"promptvault/internal/enrich"
	"promptvault/internal/infra"
)

func main() {
	infra.LoadDotEnv()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel).With().Str("cmd", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to initialize services")
	}
	defer services.Close()

	logger.Info().Dur("poll_interval", cfg.WorkerPollInterval).Msg("worker started")

	ticker := time.NewTicker(cfg.WorkerPollInterval)
	defer ticker.Stop()
	for {
		runOnce(ctx, services.Enricher, logger)
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// runOnce drives a single enrichment job to its end and logs every event.
func runOnce(ctx context.Context, enricher *enrich.Orchestrator, logger infra.Logger) {
	events, err := enricher.Start(ctx)
	if errors.Is(err, domain.ErrNothingPending) {
		logger.Debug().Msg("worker: nothing pending")
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("worker: failed to start enrichment")
		return
	}
	for ev := range events {
		switch ev.Type {
		case enrich.EventSuccess:
			logger.Info().Str("prompt_id", ev.PromptID).Str("image_url", ev.ImageURL).Int("current", ev.Current).Int("total", ev.Total).Msg("worker: preview generated")
		case enrich.EventError:
			logger.Warn().Str("prompt_id", ev.PromptID).Str("kind", string(ev.ErrorKind)).Str("error", ev.Error).Msg("worker: preview failed")
		case enrich.EventCritical:
			logger.Error().Str("kind", string(ev.ErrorKind)).Str("error", ev.Error).Int("generated", ev.Generated).Int("failed", ev.Failed).Msg("worker: job aborted")
		case enrich.EventComplete:
			logger.Info().Int("generated", ev.Generated).Int("failed", ev.Failed).Int("total", ev.Total).Msg("worker: job complete")
		}
	}
}
