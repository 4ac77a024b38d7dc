package meeting

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrBadHexColor is returned when a color string is not "#rrggbb" or "rrggbb".
var ErrBadHexColor = errors.New("meeting: invalid hex color")

// JobSpec is the fully resolved description of one composition job as read
// from a YAML spec file: inputs, layout, and export target with defaults
// applied and colors parsed.
type JobSpec struct {
	Inputs JobInputs
	Layout SpeakerLayout
	Target ExportTarget
}

// rawJobSpec mirrors the YAML file layout. Colors are hex strings here and
// converted to color.RGBA during resolution.
type rawJobSpec struct {
	Inputs  JobInputs  `yaml:"inputs"`
	Speaker rawSpeaker `yaml:"speaker"`
	Export  rawExport  `yaml:"export"`
}

type rawSpeaker struct {
	Width            *int      `yaml:"width"`
	Height           *int      `yaml:"height"`
	Position         *Position `yaml:"position"`
	FontSize         *int      `yaml:"font_size"`
	FontPath         string    `yaml:"font_path"`
	FontColor        string    `yaml:"font_color"`
	PlateBgColor     string    `yaml:"plate_bg_color"`
	PlateBgAlpha     *int      `yaml:"plate_bg_alpha"`
	PlateBorderColor string    `yaml:"plate_border_color"`
	PlateBorderWidth *int      `yaml:"plate_border_width"`
	PlatePadding     *int      `yaml:"plate_padding"`
}

type rawExport struct {
	Width   *int              `yaml:"width"`
	Height  *int              `yaml:"height"`
	FPS     *int              `yaml:"fps"`
	Threads *int              `yaml:"threads"`
	Video   *VideoCodecParams `yaml:"video"`
	Audio   *AudioCodecParams `yaml:"audio"`
	UseGPU  *bool             `yaml:"use_gpu"`
}

// LoadJobSpec reads a YAML job spec from path, applies defaults for every
// omitted field, parses colors, clamps plate geometry against the output,
// and validates the result.
func LoadJobSpec(path string) (*JobSpec, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("meeting: read job spec: %w", err)
	}
	return ParseJobSpec(data)
}

// ParseJobSpec parses a YAML job spec document. See LoadJobSpec.
func ParseJobSpec(data []byte) (*JobSpec, error) {
	var raw rawJobSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("meeting: parse job spec: %w", err)
	}

	spec := &JobSpec{
		Inputs: raw.Inputs,
		Layout: DefaultSpeakerLayout(),
		Target: DefaultExportTarget(),
	}
	if spec.Inputs.OutputPath == "" {
		spec.Inputs.OutputPath = "meeting_output.mp4"
	}

	if err := applySpeaker(&spec.Layout, raw.Speaker); err != nil {
		return nil, err
	}
	applyExport(&spec.Target, raw.Export)

	spec.Layout = spec.Layout.Clamp(spec.Target.Width, spec.Target.Height)

	if err := spec.Inputs.Validate(); err != nil {
		return nil, err
	}
	if err := spec.Target.Validate(); err != nil {
		return nil, err
	}
	if err := spec.Layout.Validate(spec.Target.Width, spec.Target.Height); err != nil {
		return nil, err
	}
	return spec, nil
}

func applySpeaker(layout *SpeakerLayout, raw rawSpeaker) error {
	setInt(&layout.Width, raw.Width)
	setInt(&layout.Height, raw.Height)
	setInt(&layout.FontSize, raw.FontSize)
	setInt(&layout.PlateBorderWidth, raw.PlateBorderWidth)
	setInt(&layout.PlatePadding, raw.PlatePadding)
	layout.Position = raw.Position
	if raw.FontPath != "" {
		layout.FontPath = raw.FontPath
	}

	if raw.FontColor != "" {
		c, err := ParseHexColor(raw.FontColor)
		if err != nil {
			return err
		}
		layout.FontColor = c
	}
	if raw.PlateBgColor != "" {
		c, err := ParseHexColor(raw.PlateBgColor)
		if err != nil {
			return err
		}
		c.A = 180
		layout.PlateBackground = c
	}
	if raw.PlateBgAlpha != nil {
		a := min(255, max(0, *raw.PlateBgAlpha))
		layout.PlateBackground.A = uint8(a)
	}
	if raw.PlateBorderColor != "" {
		c, err := ParseHexColor(raw.PlateBorderColor)
		if err != nil {
			return err
		}
		layout.PlateBorderColor = c
	}
	return nil
}

func applyExport(target *ExportTarget, raw rawExport) {
	setInt(&target.Width, raw.Width)
	setInt(&target.Height, raw.Height)
	setInt(&target.FPS, raw.FPS)
	setInt(&target.Threads, raw.Threads)
	if raw.Video != nil {
		target.Video = *raw.Video
	}
	if raw.Audio != nil {
		target.Audio = *raw.Audio
	}
	if raw.UseGPU != nil {
		target.Acceleration.UseGPU = *raw.UseGPU
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

// ParseHexColor parses "#rrggbb" (or "rrggbb") into an opaque color.RGBA.
func ParseHexColor(s string) (color.RGBA, error) {
	hexStr := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hexStr) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadHexColor, s)
	}
	v, err := strconv.ParseUint(hexStr, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadHexColor, s)
	}
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}, nil
}
