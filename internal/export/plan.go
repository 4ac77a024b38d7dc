// Package export orchestrates the end-to-end composition job: probing the
// speaker sources, reconciling their timelines, driving the per-frame
// compose/write loop, mixing audio, and encoding the final deliverable
// with a hardware-then-software-then-raw fallback chain.
package export

import (
	"math"

	"github.com/meetframe/meetframe/internal/video"
)

// TimelinePlan reconciles two speaker streams with differing lengths and
// rates into one output timeline.
type TimelinePlan struct {
	// FPS is the output frame rate: the slowest of the two sources and the
	// requested rate.
	FPS float64
	// FrameCount covers the longer stream; the shorter one is absent once
	// exhausted, never looped or frozen.
	FrameCount int
	// Duration is FrameCount / FPS in seconds.
	Duration float64
}

// OutputFPS returns min(fps1, fps2, requested).
func OutputFPS(fps1, fps2, requested float64) float64 {
	return math.Min(fps1, math.Min(fps2, requested))
}

// MaxFrames returns the longer stream's frame count.
func MaxFrames(n1, n2 int) int {
	return max(n1, n2)
}

// NewTimelinePlan derives the output timeline from two probed sources and
// the requested frame rate.
func NewTimelinePlan(info1, info2 video.StreamInfo, requestedFPS int) TimelinePlan {
	fps := OutputFPS(info1.FPS, info2.FPS, float64(requestedFPS))
	count := MaxFrames(info1.FrameCount, info2.FrameCount)
	return TimelinePlan{
		FPS:        fps,
		FrameCount: count,
		Duration:   float64(count) / fps,
	}
}
