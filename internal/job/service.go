package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meetframe/meetframe/internal/export"
	"github.com/meetframe/meetframe/internal/meeting"
	"github.com/meetframe/meetframe/internal/storage"
)

// PipelineRunner executes one composition end to end. Satisfied by
// export.Pipeline; tests inject fakes.
type PipelineRunner interface {
	Run(ctx context.Context, inputs meeting.JobInputs, layout meeting.SpeakerLayout, target meeting.ExportTarget, scratchDir string, onProgress export.ProgressFunc) error
}

// ComposeService orchestrates composition jobs: it creates the job record,
// runs the export pipeline with a per-job scratch directory, keeps the
// repository in sync with progress, and optionally publishes the result.
type ComposeService struct {
	repo     Repository
	pipeline PipelineRunner
	store    storage.Storage
	tempDir  string
	logger   *slog.Logger
}

// NewComposeService creates a new ComposeService. store may be nil when no
// publish target is configured.
func NewComposeService(repo Repository, pipeline PipelineRunner, store storage.Storage, tempDir string, logger *slog.Logger) *ComposeService {
	if logger == nil {
		logger = slog.Default()
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &ComposeService{
		repo:     repo,
		pipeline: pipeline,
		store:    store,
		tempDir:  tempDir,
		logger:   logger,
	}
}

// CreateJob accepts a composition request and persists it in queued state.
// Acceptance itself counts as the first sliver of progress.
func (s *ComposeService) CreateJob(ctx context.Context, specPath string) (*Job, error) {
	j := New()
	j.SpecPath = specPath
	j.UpdateProgress(2)

	s.logger.Info("creating composition job",
		slog.String("job_id", j.ID),
		slog.String("spec", specPath),
	)

	if err := s.repo.Save(ctx, j); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return j, nil
}

// Run executes the composition for a previously created job on the calling
// goroutine. The job transitions to running, then to done or error; the
// repository sees every whole-percent progress change. The per-job scratch
// directory is removed on every exit path.
func (s *ComposeService) Run(ctx context.Context, j *Job, spec *meeting.JobSpec) error {
	if err := j.Start(); err != nil {
		return fmt.Errorf("job %s: %w", j.ID, err)
	}
	_ = s.repo.Save(ctx, j)

	scratchDir, err := os.MkdirTemp(s.tempDir, "compose_"+j.ID+"_")
	if err != nil {
		return s.fail(ctx, j, fmt.Errorf("create scratch dir: %w", err))
	}
	defer s.cleanupScratch(ctx, j.ID, scratchDir)

	lastSaved := j.GetProgress()
	onProgress := func(percent float64) {
		j.UpdateProgress(percent)
		// Persist at whole-percent granularity to keep the repository quiet
		// during the frame loop.
		if p := j.GetProgress(); p-lastSaved >= 1 || p >= 100 {
			lastSaved = p
			_ = s.repo.Save(ctx, j)
		}
	}

	if err := s.pipeline.Run(ctx, spec.Inputs, spec.Layout, spec.Target, scratchDir, onProgress); err != nil {
		return s.fail(ctx, j, err)
	}

	publishedURL, err := s.publish(ctx, j.ID, spec.Inputs.OutputPath)
	if err != nil {
		return s.fail(ctx, j, err)
	}

	j.SetOutput(spec.Inputs.OutputPath, publishedURL)
	if err := j.Complete(); err != nil {
		return fmt.Errorf("job %s: %w", j.ID, err)
	}
	_ = s.repo.Save(ctx, j)

	s.logger.Info("composition job finished",
		slog.String("job_id", j.ID),
		slog.String("output", spec.Inputs.OutputPath),
	)
	return nil
}

// publish uploads the finished video when a publish-capable store is
// configured. An unconfigured store is not an error.
func (s *ComposeService) publish(ctx context.Context, jobID, outputPath string) (string, error) {
	if s.store == nil {
		return "", nil
	}

	f, err := s.store.LoadTemp(ctx, outputPath)
	if err != nil {
		return "", fmt.Errorf("open output for publish: %w", err)
	}
	defer func() { _ = f.Close() }()

	key := jobID + "/" + filepath.Base(outputPath)
	url, err := s.store.Publish(ctx, key, f)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return "", nil
		}
		return "", fmt.Errorf("publish output: %w", err)
	}

	s.logger.Info("output published",
		slog.String("job_id", jobID),
		slog.String("url", url),
	)
	return url, nil
}

// cleanupScratch removes the per-job scratch directory. Individual files go
// through the storage port so adapters see every artifact they handed out;
// the directory itself is swept afterwards. Cleanup still runs when the job
// context has been cancelled.
func (s *ComposeService) cleanupScratch(ctx context.Context, jobID, scratchDir string) {
	ctx = context.WithoutCancel(ctx)

	if s.store != nil {
		entries, err := os.ReadDir(scratchDir)
		if err == nil {
			paths := make([]string, 0, len(entries))
			for _, e := range entries {
				if !e.IsDir() {
					paths = append(paths, filepath.Join(scratchDir, e.Name()))
				}
			}
			if err := s.store.CleanupTemp(ctx, paths); err != nil {
				s.logger.Warn("scratch files not fully removed",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if err := os.RemoveAll(scratchDir); err != nil {
		s.logger.Warn("scratch dir not fully removed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ComposeService) fail(ctx context.Context, j *Job, cause error) error {
	s.logger.Error("composition job failed",
		slog.String("job_id", j.ID),
		slog.String("error", cause.Error()),
	)
	if err := j.Fail(cause.Error()); err != nil {
		s.logger.Warn("could not mark job failed",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
	_ = s.repo.Save(ctx, j)
	return cause
}

// GetJob retrieves a job by ID.
func (s *ComposeService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all known jobs.
func (s *ComposeService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// DeleteJob removes a job record.
func (s *ComposeService) DeleteJob(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
