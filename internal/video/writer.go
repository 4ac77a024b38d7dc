package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
)

// ErrFrameSize is returned when a frame does not match the writer's
// configured resolution.
var ErrFrameSize = errors.New("video: frame size mismatch")

// Writer encodes raw RGBA frames into the silent intermediate video. The
// intermediate uses a fast software encode; final quality is applied later
// by the mux/encode phase.
type Writer struct {
	width  int
	height int

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	closed bool
}

// NewWriter starts an ffmpeg process consuming raw RGBA frames at the given
// resolution and frame rate, writing an audio-less MP4 to path.
func NewWriter(ctx context.Context, ffmpegPath, path string, width, height int, fps float64) (*Writer, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("video: invalid writer resolution %dx%d", width, height)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("video: invalid writer fps %f", fps)
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "pipe:0",
		"-an",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		path,
	}
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("video: stdin pipe: %w", err)
	}

	w := &Writer{width: width, height: height, cmd: cmd, stdin: stdin}
	cmd.Stderr = &w.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("video: start intermediate encoder: %w", err)
	}
	return w, nil
}

// WriteFrame appends one frame. The frame must be exactly the writer's
// resolution; the compositor guarantees this.
func (w *Writer) WriteFrame(frame *image.RGBA) error {
	if w.closed {
		return errors.New("video: writer closed")
	}
	b := frame.Bounds()
	if b.Dx() != w.width || b.Dy() != w.height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d",
			ErrFrameSize, b.Dx(), b.Dy(), w.width, w.height)
	}

	rowBytes := 4 * w.width
	if frame.Stride == rowBytes && b.Min == (image.Point{}) {
		_, err := w.stdin.Write(frame.Pix[:rowBytes*w.height])
		return err
	}
	// Sub-image or padded stride: write row by row.
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := frame.PixOffset(b.Min.X, y)
		if _, err := w.stdin.Write(frame.Pix[off : off+rowBytes]); err != nil {
			return err
		}
	}
	return nil
}

// Close finalizes the intermediate file and waits for the encoder.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_ = w.stdin.Close()
	if err := w.cmd.Wait(); err != nil {
		return &FFmpegError{Args: w.cmd.Args, Stderr: w.stderr.String(), Err: err}
	}
	return nil
}
