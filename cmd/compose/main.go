// Package main provides the compose command: it runs one composition job
// from a YAML job spec, or renders a single preview still when a second
// path is given.
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
	if len(os.Args) < 2 || len(os.Args) > 3 {
		return fmt.Errorf("usage: %s <job-spec.yaml> [preview.jpg]", os.Args[0])
	}
	specPath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	spec, err := meeting.LoadJobSpec(specPath)
	if err != nil {
		return fmt.Errorf("load job spec: %w", err)
	}

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Preview mode: compose the first frame only and write a JPEG still.
	if len(os.Args) == 3 {
		previewPath := os.Args[2]
		if err := deps.Previewer.Preview(ctx, spec.Inputs, spec.Layout, spec.Target, previewPath); err != nil {
			return fmt.Errorf("render preview: %w", err)
		}
		logger.Info("preview written",
			slog.String("path", previewPath),
		)
		return nil
	}

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
	return nil
}
