// Package main provides the entry point for the meeting video composer.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/meetframe/meetframe/internal/bootstrap"
	"github.com/meetframe/meetframe/internal/config"
	"github.com/meetframe/meetframe/internal/meeting"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) != 2 {
		return fmt.Errorf("usage: %s <job-spec.yaml>", os.Args[0])
	}
	specPath := os.Args[1]

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting meeting composer",
		slog.String("spec", specPath),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("temp_dir", cfg.TempDir),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	spec, err := meeting.LoadJobSpec(specPath)
	if err != nil {
		return fmt.Errorf("load job spec: %w", err)
	}

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	// Cancel the composition on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	j, err := deps.ComposeService.CreateJob(ctx, specPath)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	if err := deps.ComposeService.Run(ctx, j, spec); err != nil {
		return fmt.Errorf("job %s: %w", j.ID, err)
	}

	logger.Info("composition complete",
		slog.String("job_id", j.ID),
		slog.String("output", j.OutputPath),
	)
	if j.PublishedURL != "" {
		logger.Info("output published",
			slog.String("url", j.PublishedURL),
		)
	}
	return nil
}
