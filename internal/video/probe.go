package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Static errors for stream probing.
var (
	// ErrProbeFailed is returned when ffprobe cannot inspect a source.
	ErrProbeFailed = errors.New("video: probe failed")
	// ErrNoVideoStream is returned when a source has no video stream.
	ErrNoVideoStream = errors.New("video: no video stream")
)

// StreamInfo describes one video source as reported by ffprobe.
type StreamInfo struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	Duration   float64
}

// ffprobeOutput mirrors the JSON emitted by ffprobe -of json.
type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames  string `json:"nb_frames"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

// Prober inspects video sources with ffprobe.
type Prober struct {
	ffprobePath string
}

// NewProber creates a Prober. If ffprobePath is empty it defaults to
// "ffprobe" (found via PATH).
func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// Probe returns frame rate, frame count, and spatial dimensions for the
// first video stream of path. Failure to probe a speaker source is fatal
// for the job.
func (p *Prober) Probe(ctx context.Context, path string) (StreamInfo, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return StreamInfo{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return StreamInfo{}, fmt.Errorf("%w: %s: %v, stderr: %s",
			ErrProbeFailed, path, err, stderr.String())
	}

	return parseProbeOutput(stdout.Bytes(), path)
}

// parseProbeOutput converts ffprobe JSON into StreamInfo. When nb_frames is
// absent (common for streams without an index) the count is derived from
// container duration and frame rate.
func parseProbeOutput(data []byte, path string) (StreamInfo, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return StreamInfo{}, fmt.Errorf("%w: parse ffprobe output: %v", ErrProbeFailed, err)
	}
	if len(out.Streams) == 0 {
		return StreamInfo{}, fmt.Errorf("%w: %s", ErrNoVideoStream, path)
	}

	s := out.Streams[0]
	info := StreamInfo{Width: s.Width, Height: s.Height}
	if info.Width <= 0 || info.Height <= 0 {
		return StreamInfo{}, fmt.Errorf("%w: %s reports %dx%d",
			ErrProbeFailed, path, info.Width, info.Height)
	}

	fps, err := parseFrameRate(s.RFrameRate)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("%w: %s: %v", ErrProbeFailed, path, err)
	}
	info.FPS = fps

	if d, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64); err == nil {
		info.Duration = d
	}

	if n, err := strconv.Atoi(strings.TrimSpace(s.NbFrames)); err == nil && n > 0 {
		info.FrameCount = n
	} else if info.Duration > 0 {
		info.FrameCount = int(math.Round(info.Duration * info.FPS))
	}
	if info.FrameCount <= 0 {
		return StreamInfo{}, fmt.Errorf("%w: %s has no determinable frame count",
			ErrProbeFailed, path)
	}

	if info.Duration == 0 && info.FPS > 0 {
		info.Duration = float64(info.FrameCount) / info.FPS
	}
	return info, nil
}

// parseFrameRate parses ffprobe's rational frame rate, e.g. "30000/1001".
func parseFrameRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty frame rate")
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("bad frame rate %q", s)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("bad frame rate %q", s)
		}
		return n / d, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("bad frame rate %q", s)
	}
	return v, nil
}
