package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/go-audio/wav"
)

// FFmpegExtractor decodes the audio track of a video source into a mono
// sample buffer using the ffmpeg CLI.
type FFmpegExtractor struct {
	ffmpegPath string
	tempDir    string
	logger     *slog.Logger
}

// NewFFmpegExtractor creates an extractor. Empty ffmpegPath defaults to
// "ffmpeg"; empty tempDir defaults to the system temp directory.
func NewFFmpegExtractor(ffmpegPath, tempDir string, logger *slog.Logger) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegExtractor{ffmpegPath: ffmpegPath, tempDir: tempDir, logger: logger}
}

// Extract decodes videoPath's audio track to mono 44.1 kHz samples.
// Any failure (no audio track, decode error, tool unavailable) returns
// (nil, nil): the job proceeds without audio from this source.
func (e *FFmpegExtractor) Extract(ctx context.Context, videoPath string) ([]float64, error) {
	f, err := os.CreateTemp(e.tempDir, "extract_*.wav")
	if err != nil {
		return nil, fmt.Errorf("audio: create temp wav: %w", err)
	}
	tempWav := f.Name()
	_ = f.Close()
	defer func() { _ = os.Remove(tempWav) }()

	args := []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", "1",
		"-threads", "0",
		"-y",
		tempWav,
	}
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("audio: extract cancelled: %w", ctx.Err())
		}
		// Missing track or broken stream: degrade to "no audio".
		e.logger.Warn("audio extraction failed, continuing without this track",
			slog.String("source", filepath.Base(videoPath)),
			slog.String("stderr", tail(stderr.String(), 300)),
		)
		return nil, nil
	}

	samples, err := readWAV(tempWav)
	if err != nil {
		e.logger.Warn("extracted wav unreadable, continuing without this track",
			slog.String("source", filepath.Base(videoPath)),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return samples, nil
}

// readWAV loads a 16-bit mono WAV into normalized float64 samples.
func readWAV(path string) ([]float64, error) {
	f, err := os.Open(path) // #nosec G304 - path is created by this package
	if err != nil {
		return nil, fmt.Errorf("audio: open wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("audio: wav has no samples")
	}

	scale := float64(int(1) << (buf.SourceBitDepth - 1))
	if buf.SourceBitDepth == 0 {
		scale = 1 << 15
	}
	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v) / scale
	}
	return samples, nil
}

// tail returns the last n bytes of s for compact log output.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
