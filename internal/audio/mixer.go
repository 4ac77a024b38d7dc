package audio

import "math"

// Mix aligns and sums two sample buffers to a common target duration.
// Each present buffer is right-zero-padded to the target length, truncated
// to it, and added into the accumulator. If both buffers are nil the mix is
// nil (video-only export). A nonzero peak is normalized to 0.8 to leave
// headroom; a silent mix stays all-zero.
func Mix(a1, a2 []float64, sampleRate int, durationSec float64) []float64 {
	if a1 == nil && a2 == nil {
		return nil
	}

	targetLen := int(math.Round(durationSec * float64(sampleRate)))
	if targetLen < 0 {
		targetLen = 0
	}
	mixed := make([]float64, targetLen)

	accumulate(mixed, a1)
	accumulate(mixed, a2)

	peak := 0.0
	for _, v := range mixed {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		scale := mixHeadroom / peak
		for i := range mixed {
			mixed[i] *= scale
		}
	}
	return mixed
}

// accumulate adds src into dst, implicitly zero-padding src to len(dst)
// and truncating anything beyond it.
func accumulate(dst, src []float64) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}
