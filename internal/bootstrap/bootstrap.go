// Package bootstrap wires the prompt store, image provider, blob store and
// enrichment orchestrator from configuration. The api and worker binaries
// share it.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"promptvault/internal/adapter/repo"
	"promptvault/internal/enrich"
	"promptvault/internal/infra"
	"promptvault/internal/infra/credentials"
	"promptvault/internal/providers/image"
	"promptvault/internal/storage"
)

// PreviewPrefix is the storage folder for generated previews.
const PreviewPrefix = "previews"

type Services struct {
	Backend  *repo.Backend
	Images   *image.Client
	Blobs    *storage.FileStore
	Enricher *enrich.Orchestrator
}

// Close releases the store connections.
func (s *Services) Close() {
	if s != nil {
		s.Backend.Close()
	}
}

func Build(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Services, error) {
	backend, err := repo.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	blobs, err := storage.NewFileStore(storagePath, cfg.StorageBaseURL, PreviewPrefix)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("configure storage: %w", err)
	}

	apiKey := resolveImageAPIKey(ctx, cfg, backend, logger)
	images, err := image.NewClient(image.Options{
		APIKey:         apiKey,
		BaseURL:        cfg.ImageAPIBaseURL,
		Model:          cfg.ImageModel,
		Size:           cfg.ImageSize,
		Logger:         &logger,
		RequestTimeout: cfg.ImageRequestTimeout,
	})
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("configure image provider: %w", err)
	}
	if !images.HasCredentials() {
		logger.Warn().Str("model", images.Model()).Msg("image api key missing, using synthetic previews")
	}

	orchestrator := enrich.New(backend.Prompts, images, blobs, enrich.Options{
		BatchSize:                 cfg.EnrichBatchSize,
		BatchDelay:                batchDelay(cfg.EnrichBatchDelay),
		CompensateOrphanedUploads: cfg.EnrichCompensateUploads,
		Logger:                    &logger,
	})

	return &Services{Backend: backend, Images: images, Blobs: blobs, Enricher: orchestrator}, nil
}

// resolveImageAPIKey prefers the environment and falls back to the
// integration token table when the store has one.
func resolveImageAPIKey(ctx context.Context, cfg *infra.Config, backend *repo.Backend, logger infra.Logger) string {
	key := strings.TrimSpace(cfg.ImageAPIKey)
	if key != "" || backend.SQL == nil {
		return key
	}
	stored, err := credentials.NewStore(backend.SQL).ImageAPIKey(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load image api key from store")
		return ""
	}
	return stored
}

// batchDelay maps a configured zero to "no pause"; the orchestrator reads
// zero as its default.
func batchDelay(d time.Duration) time.Duration {
	if d <= 0 {
		return -1
	}
	return d
}
