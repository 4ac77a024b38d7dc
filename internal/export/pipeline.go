package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/meetframe/meetframe/internal/audio"
	"github.com/meetframe/meetframe/internal/compose"
	"github.com/meetframe/meetframe/internal/meeting"
	"github.com/meetframe/meetframe/internal/render"
	"github.com/meetframe/meetframe/internal/video"
)

// Progress checkpoints exposed to the calling collaborator. The frame loop
// owns the 10-90 band.
const (
	progressAudioDone  = 10.0
	progressFrameBand  = 80.0
	progressMuxStarted = 92.0
	progressComplete   = 100.0
)

// ProgressFunc receives coarse progress percentages in [0, 100]. Callers
// must tolerate repeated values; the pipeline never reports backwards.
type ProgressFunc func(percent float64)

// CommandRunner executes one ffmpeg invocation to completion. Injected so
// tests can exercise the encode fallback chain without a real encoder.
type CommandRunner interface {
	Run(ctx context.Context, args []string) error
}

// execRunner shells out to ffmpeg and captures stderr for diagnostics.
type execRunner struct {
	ffmpegPath string
}

func (r *execRunner) Run(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("export: ffmpeg cancelled: %w", ctx.Err())
		}
		return &video.FFmpegError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return nil
}

// Pipeline runs composition jobs. One Pipeline may serve many jobs; the
// encoder capability list is probed on first use and reused, while the
// codec plan follows each job's target. Per-job state lives on the stack
// of Run.
type Pipeline struct {
	ffmpegPath string
	prober     *video.Prober
	extractor  *audio.FFmpegExtractor
	runner     CommandRunner
	probe      EncoderProbe
	logger     *slog.Logger

	// probeOnce guards the encoder capability query; the installed
	// encoders do not change over a process lifetime.
	probeOnce   sync.Once
	encoderList string
	probeErr    error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunner replaces the ffmpeg invocation runner (tests).
func WithRunner(r CommandRunner) Option {
	return func(p *Pipeline) { p.runner = r }
}

// WithEncoderProbe replaces the encoder capability probe (tests).
func WithEncoderProbe(probe EncoderProbe) Option {
	return func(p *Pipeline) { p.probe = probe }
}

// NewPipeline creates a Pipeline. Empty ffmpegPath and ffprobePath default
// to the binaries found via PATH.
func NewPipeline(ffmpegPath, ffprobePath, tempDir string, logger *slog.Logger, opts ...Option) *Pipeline {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		ffmpegPath: ffmpegPath,
		prober:     video.NewProber(ffprobePath),
		extractor:  audio.NewFFmpegExtractor(ffmpegPath, tempDir, logger),
		runner:     &execRunner{ffmpegPath: ffmpegPath},
		probe:      NewEncoderProbe(ffmpegPath),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// codecPlan resolves the encoder for one job from the cached capability
// list and the job's own target; a job that disables acceleration never
// triggers the probe.
func (p *Pipeline) codecPlan(ctx context.Context, target meeting.ExportTarget) CodecPlan {
	probe := p.probe
	if probe != nil {
		probe = func(ctx context.Context) (string, error) {
			p.probeOnce.Do(func() {
				p.encoderList, p.probeErr = p.probe(ctx)
			})
			return p.encoderList, p.probeErr
		}
	}

	plan := ResolvePlan(ctx, target.Acceleration, target.Video.Codec, probe)
	p.logger.Info("encoder resolved",
		slog.String("codec", plan.Codec),
		slog.Bool("hardware", plan.Hardware),
	)
	return plan
}

// Run executes one composition job end to end. scratchDir must be a
// directory owned exclusively by this job; intermediate artifacts are
// created there and removed once the final output exists. On error no
// partial output is left at the declared output path.
func (p *Pipeline) Run(ctx context.Context, inputs meeting.JobInputs, layout meeting.SpeakerLayout, target meeting.ExportTarget, scratchDir string, onProgress ProgressFunc) error {
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	// Phase 1: probe. Unopenable sources are fatal.
	background, err := render.LoadImage(inputs.BackgroundPath)
	if err != nil {
		return fmt.Errorf("export: background unreadable: %w", err)
	}
	info1, err := p.prober.Probe(ctx, inputs.Speaker1Path)
	if err != nil {
		return fmt.Errorf("export: speaker 1 source: %w", err)
	}
	info2, err := p.prober.Probe(ctx, inputs.Speaker2Path)
	if err != nil {
		return fmt.Errorf("export: speaker 2 source: %w", err)
	}
	plan := NewTimelinePlan(info1, info2, target.FPS)

	p.logger.Info("timeline planned",
		slog.Float64("fps", plan.FPS),
		slog.Int("frames", plan.FrameCount),
		slog.Float64("duration_sec", plan.Duration),
	)

	// Phase 2: audio. Per-source failures are tolerated.
	a1, err := p.extractor.Extract(ctx, inputs.Speaker1Path)
	if err != nil {
		return err
	}
	a2, err := p.extractor.Extract(ctx, inputs.Speaker2Path)
	if err != nil {
		return err
	}
	mixed := audio.Mix(a1, a2, audio.SampleRate, plan.Duration)

	audioPath := ""
	if mixed != nil {
		audioPath = filepath.Join(scratchDir, "mixed.wav")
		if err := audio.WriteWAV(mixed, audio.SampleRate, audioPath); err != nil {
			// Losing the mix degrades to video-only, same as missing tracks.
			p.logger.Warn("writing mixed audio failed, exporting without audio",
				slog.String("error", err.Error()),
			)
			audioPath = ""
		}
	}
	onProgress(progressAudioDone)

	// Phase 3: frame loop into the silent intermediate.
	intermediate := filepath.Join(scratchDir, "intermediate.mp4")
	if err := p.writeFrames(ctx, background, inputs, layout, target, info1, info2, plan, intermediate, onProgress); err != nil {
		return err
	}

	// Phase 4: mux/encode with fallback; write next to the intermediate and
	// move into place only on success.
	onProgress(progressMuxStarted)
	staged := filepath.Join(scratchDir, "final"+filepath.Ext(inputs.OutputPath))
	if staged == intermediate {
		staged += ".out"
	}
	if err := p.encode(ctx, target, intermediate, audioPath, staged); err != nil {
		return err
	}
	if err := moveFile(staged, inputs.OutputPath); err != nil {
		return fmt.Errorf("export: place output: %w", err)
	}

	// Phase 5: cleanup. The scratch dir owner removes the rest.
	_ = os.Remove(intermediate)
	if audioPath != "" {
		_ = os.Remove(audioPath)
	}
	onProgress(progressComplete)
	return nil
}

// writeFrames drives the compose/write loop. It owns both decoders and the
// intermediate writer and releases them on every exit path.
func (p *Pipeline) writeFrames(ctx context.Context, background *image.RGBA, inputs meeting.JobInputs, layout meeting.SpeakerLayout, target meeting.ExportTarget, info1, info2 video.StreamInfo, plan TimelinePlan, intermediate string, onProgress ProgressFunc) error {
	r1, err := video.NewReader(ctx, p.ffmpegPath, inputs.Speaker1Path, info1)
	if err != nil {
		return fmt.Errorf("export: open speaker 1: %w", err)
	}
	defer func() { _ = r1.Close() }()

	r2, err := video.NewReader(ctx, p.ffmpegPath, inputs.Speaker2Path, info2)
	if err != nil {
		return fmt.Errorf("export: open speaker 2: %w", err)
	}
	defer func() { _ = r2.Close() }()

	w, err := video.NewWriter(ctx, p.ffmpegPath, intermediate, target.Width, target.Height, plan.FPS)
	if err != nil {
		return fmt.Errorf("export: open intermediate writer: %w", err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = w.Close()
		}
	}()

	comp := compose.NewCompositor(layout, target, p.logger)
	bg, err := comp.PrepareBackground(background)
	if err != nil {
		return fmt.Errorf("export: prepare background: %w", err)
	}

	for i := 0; i < plan.FrameCount; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("export: cancelled at frame %d: %w", i, err)
		}

		f1 := r1.Next()
		f2 := r2.Next()
		frame := comp.ComposeFrame(bg, f1, f2, inputs.Speaker1Name, inputs.Speaker2Name)
		if err := w.WriteFrame(frame); err != nil {
			return fmt.Errorf("export: write frame %d: %w", i, err)
		}

		onProgress(progressAudioDone + progressFrameBand*float64(i)/float64(plan.FrameCount))
	}

	closed = true
	if err := w.Close(); err != nil {
		return fmt.Errorf("export: finalize intermediate: %w", err)
	}
	return nil
}

// encode merges the intermediate with the mixed audio using the resolved
// codec plan. On encoder failure it retries once with the software codec
// and the same quality parameters; if that also fails, the raw intermediate
// becomes the output verbatim (audio dropped) rather than failing the job.
func (p *Pipeline) encode(ctx context.Context, target meeting.ExportTarget, intermediate, audioPath, outputPath string) error {
	plan := p.codecPlan(ctx, target)

	err := p.runner.Run(ctx, muxArgs(intermediate, audioPath, outputPath, plan.Codec, target))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if plan.Hardware {
		p.logger.Warn("hardware encode failed, retrying with software codec",
			slog.String("hardware_codec", plan.Codec),
			slog.String("software_codec", target.Video.Codec),
			slog.String("error", err.Error()),
		)
		err = p.runner.Run(ctx, muxArgs(intermediate, audioPath, outputPath, target.Video.Codec, target))
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}

	// Last resort: the composition itself succeeded, so deliver the raw
	// intermediate instead of aborting. Audio is dropped on this path.
	p.logger.Warn("encoder unavailable, delivering raw intermediate video",
		slog.String("error", err.Error()),
	)
	if err := copyFile(intermediate, outputPath); err != nil {
		return fmt.Errorf("export: deliver intermediate: %w", err)
	}
	return nil
}

// moveFile renames src to dst, falling back to copy+remove across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - paths live in the job scratch dir
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) // #nosec G304 - dst comes from validated job inputs
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy file: %w", err)
	}
	return out.Close()
}
