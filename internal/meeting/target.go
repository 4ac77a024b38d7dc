package meeting

import "fmt"

// VideoCodecParams are the encoder settings for the final video stream.
type VideoCodecParams struct {
	// Codec is the software codec name used when no hardware encoder is
	// selected, e.g. "libx264".
	Codec string `yaml:"codec" validate:"required"`
	// Preset is the encoder speed/quality preset.
	Preset string `yaml:"preset" validate:"required"`
	// CRF is the constant-quality factor (0 best, 51 worst).
	CRF int `yaml:"crf" validate:"min=0,max=51"`
	// Bitrate is the target bitrate in ffmpeg notation, e.g. "5000k".
	Bitrate string `yaml:"bitrate" validate:"required"`
}

// AudioCodecParams are the encoder settings for the final audio stream.
type AudioCodecParams struct {
	Codec      string `yaml:"codec" validate:"required"`
	Bitrate    string `yaml:"bitrate" validate:"required"`
	SampleRate int    `yaml:"sample_rate" validate:"min=1"`
	Channels   int    `yaml:"channels" validate:"min=1,max=8"`
}

// AccelerationPreference is the user-supplied wish for hardware encoding.
// It is immutable; the runtime-resolved codec lives in export.CodecPlan,
// never written back here.
type AccelerationPreference struct {
	// UseGPU requests hardware encoding when a compatible encoder exists.
	UseGPU bool `yaml:"use_gpu"`
}

// ExportTarget describes the output video: resolution, frame rate, and
// codec parameters.
type ExportTarget struct {
	Width  int `yaml:"width" validate:"min=1,max=8192"`
	Height int `yaml:"height" validate:"min=1,max=8192"`
	FPS    int `yaml:"fps" validate:"min=1,max=120"`
	// Threads is a hint for the encoder; 0 lets ffmpeg decide.
	Threads int `yaml:"threads" validate:"min=0,max=64"`

	Video        VideoCodecParams       `yaml:"video"`
	Audio        AudioCodecParams       `yaml:"audio"`
	Acceleration AccelerationPreference `yaml:"acceleration"`
}

// DefaultExportTarget returns the reference output configuration:
// 1080p30, libx264 fast CRF 23 at 5000k, AAC 128k mono-mixed at 44.1 kHz.
func DefaultExportTarget() ExportTarget {
	return ExportTarget{
		Width:  1920,
		Height: 1080,
		FPS:    30,
		Video: VideoCodecParams{
			Codec:   "libx264",
			Preset:  "fast",
			CRF:     23,
			Bitrate: "5000k",
		},
		Audio: AudioCodecParams{
			Codec:      "aac",
			Bitrate:    "128k",
			SampleRate: 44100,
			Channels:   2,
		},
		Acceleration: AccelerationPreference{UseGPU: true},
	}
}

// Validate checks the target and its nested codec parameters.
func (t *ExportTarget) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("meeting: export target: %w", err)
	}
	return nil
}
