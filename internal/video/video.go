// Package video drives ffmpeg/ffprobe to expose speaker sources as
// per-frame decodable streams and to write the silent intermediate video.
// Decoders are stateful and read strictly sequentially; a Reader must be
// used from one goroutine and closed on every exit path.
package video

import (
	"fmt"
	"image"
)

// FrameKind distinguishes the outcomes of reading one frame.
type FrameKind int

const (
	// FrameOK means a frame was decoded.
	FrameOK FrameKind = iota
	// FrameExhausted means the stream ended; the speaker is absent from
	// here on.
	FrameExhausted
	// FrameReadError means this frame could not be decoded; the speaker is
	// treated as absent for this time step only.
	FrameReadError
)

// FrameResult is the explicit outcome of Reader.Next. Compositors switch on
// Kind instead of testing a nullable image.
type FrameResult struct {
	Kind  FrameKind
	Image *image.RGBA
	Err   error
}

// Present reports whether the result carries a usable frame.
func (r FrameResult) Present() bool {
	return r.Kind == FrameOK && r.Image != nil
}

// FFmpegError is an error from an ffmpeg invocation including the captured
// stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
