package audio

import (
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes mono float64 samples in [-1, 1] as a 16-bit PCM WAV at
// the given sample rate.
func WriteWAV(samples []float64, sampleRate int, path string) error {
	f, err := os.Create(path) // #nosec G304 - path lives in the job scratch dir
	if err != nil {
		return fmt.Errorf("audio: create wav: %w", err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)

	data := make([]int, len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		data[i] = int(v * 32767)
	}
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("audio: write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("audio: finalize wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("audio: close wav: %w", err)
	}
	return nil
}
