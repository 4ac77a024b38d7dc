// Package bootstrap provides dependency initialization for the composer.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/meetframe/meetframe/internal/compose"
	"github.com/meetframe/meetframe/internal/config"
	"github.com/meetframe/meetframe/internal/export"
	"github.com/meetframe/meetframe/internal/job"
	"github.com/meetframe/meetframe/internal/storage"
	"github.com/meetframe/meetframe/internal/video"
)

// Dependencies holds all initialized dependencies for the application.
type Dependencies struct {
	ComposeService *job.ComposeService
	Pipeline       *export.Pipeline
	Previewer      *compose.Previewer
	Storage        storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize the export pipeline and previewer
	pipeline := export.NewPipeline(cfg.FFmpegPath, cfg.FFprobePath, cfg.TempDir, logger)
	previewer := compose.NewPreviewer(video.NewProber(cfg.FFprobePath), cfg.FFmpegPath, logger)

	// Initialize job repository and service
	repo := job.NewMemoryRepository()
	svc := job.NewComposeService(repo, pipeline, store, cfg.TempDir, logger)

	return &Dependencies{
		ComposeService: svc,
		Pipeline:       pipeline,
		Previewer:      previewer,
		Storage:        store,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
