package compose

import (
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"os"

	"github.com/meetframe/meetframe/internal/meeting"
	"github.com/meetframe/meetframe/internal/render"
	"github.com/meetframe/meetframe/internal/video"
)

// previewQuality is the JPEG quality for preview stills.
const previewQuality = 90

// Previewer renders a single composited still from the first available
// frame of each speaker source.
type Previewer struct {
	prober     *video.Prober
	ffmpegPath string
	logger     *slog.Logger
}

// NewPreviewer creates a Previewer.
func NewPreviewer(prober *video.Prober, ffmpegPath string, logger *slog.Logger) *Previewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Previewer{prober: prober, ffmpegPath: ffmpegPath, logger: logger}
}

// Preview composes the first frame of both sources over the background and
// writes it as a JPEG to outPath. Unlike the export pipeline, a missing
// first frame from either source is fatal here: a preview with no speakers
// is not useful feedback.
func (p *Previewer) Preview(ctx context.Context, inputs meeting.JobInputs, layout meeting.SpeakerLayout, target meeting.ExportTarget, outPath string) error {
	bg, err := render.LoadImage(inputs.BackgroundPath)
	if err != nil {
		return fmt.Errorf("compose: load background: %w", err)
	}

	f1, err := p.firstFrame(ctx, inputs.Speaker1Path)
	if err != nil {
		return err
	}
	f2, err := p.firstFrame(ctx, inputs.Speaker2Path)
	if err != nil {
		return err
	}

	comp := NewCompositor(layout, target, p.logger)
	resized, err := comp.PrepareBackground(bg)
	if err != nil {
		return fmt.Errorf("compose: prepare background: %w", err)
	}
	frame := comp.ComposeFrame(resized, f1, f2, inputs.Speaker1Name, inputs.Speaker2Name)

	out, err := os.Create(outPath) // #nosec G304 - path comes from validated job inputs
	if err != nil {
		return fmt.Errorf("compose: create preview file: %w", err)
	}
	if err := jpeg.Encode(out, frame, &jpeg.Options{Quality: previewQuality}); err != nil {
		_ = out.Close()
		_ = os.Remove(outPath)
		return fmt.Errorf("compose: encode preview: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("compose: close preview file: %w", err)
	}
	return nil
}

// firstFrame opens path and decodes its first frame.
func (p *Previewer) firstFrame(ctx context.Context, path string) (video.FrameResult, error) {
	info, err := p.prober.Probe(ctx, path)
	if err != nil {
		return video.FrameResult{}, fmt.Errorf("compose: probe %s: %w", path, err)
	}

	r, err := video.NewReader(ctx, p.ffmpegPath, path, info)
	if err != nil {
		return video.FrameResult{}, fmt.Errorf("compose: open %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()

	res := r.Next()
	if !res.Present() {
		return video.FrameResult{}, fmt.Errorf("compose: no readable frame in %s", path)
	}
	return res, nil
}
