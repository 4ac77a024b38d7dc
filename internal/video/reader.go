package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
)

// Reader decodes a video source into raw RGBA frames over an ffmpeg pipe.
// Frames are produced sequentially at the source's native resolution.
type Reader struct {
	info   StreamInfo
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer

	frameSize int
	exhausted bool
	failed    bool
	closed    bool
}

// NewReader opens path for per-frame decoding. The info must come from a
// prior Probe of the same file; it fixes the expected frame byte size.
// Callers must Close the reader on every exit path.
func NewReader(ctx context.Context, ffmpegPath, path string, info StreamInfo) (*Reader, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	args := []string{
		"-v", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-an",
		"pipe:1",
	}
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("video: stdout pipe: %w", err)
	}

	r := &Reader{
		info:      info,
		cmd:       cmd,
		stdout:    stdout,
		frameSize: info.Width * info.Height * 4,
	}
	cmd.Stderr = &r.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("video: start decoder for %s: %w", path, err)
	}
	return r, nil
}

// Info returns the probed stream description backing this reader.
func (r *Reader) Info() StreamInfo {
	return r.info
}

// Next reads the next frame. Once the stream ends every subsequent call
// returns FrameExhausted. A mid-stream read failure yields FrameReadError
// once; the byte stream is misaligned after a short read, so the reader is
// done producing frames and later calls return FrameExhausted.
func (r *Reader) Next() FrameResult {
	if r.exhausted || r.failed || r.closed {
		return FrameResult{Kind: FrameExhausted}
	}

	buf := make([]byte, r.frameSize)
	_, err := io.ReadFull(r.stdout, buf)
	switch {
	case err == nil:
		img := &image.RGBA{
			Pix:    buf,
			Stride: 4 * r.info.Width,
			Rect:   image.Rect(0, 0, r.info.Width, r.info.Height),
		}
		return FrameResult{Kind: FrameOK, Image: img}
	case errors.Is(err, io.EOF):
		r.exhausted = true
		return FrameResult{Kind: FrameExhausted}
	case errors.Is(err, io.ErrUnexpectedEOF):
		// Truncated trailing frame; treat the stream as over.
		r.exhausted = true
		return FrameResult{Kind: FrameExhausted}
	default:
		r.failed = true
		return FrameResult{Kind: FrameReadError, Err: err}
	}
}

// Close releases the decoder process. Safe to call multiple times.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	_ = r.stdout.Close()
	if r.cmd.Process != nil && !r.exhausted {
		// Decoder may still be producing frames nobody will read.
		_ = r.cmd.Process.Kill()
	}
	err := r.cmd.Wait()
	if err != nil && !r.exhausted {
		// Expected when the process was killed mid-stream.
		return nil
	}
	if err != nil {
		return &FFmpegError{Args: r.cmd.Args, Stderr: r.stderr.String(), Err: err}
	}
	return nil
}
