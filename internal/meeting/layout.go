package meeting

import (
	"fmt"
	"image/color"
)

// Position is an explicit top-left placement for speaker 1. When set, the
// layout skips auto-centering for speaker 1; speaker 2 is still centered in
// its own half of the frame.
type Position struct {
	X int `yaml:"x" validate:"min=0"`
	Y int `yaml:"y" validate:"min=0"`
}

// SpeakerLayout describes the size and styling of a speaker box and its
// name plate. Both speakers share one layout.
type SpeakerLayout struct {
	// Width and Height are the speaker box dimensions in pixels.
	Width  int `yaml:"width" validate:"min=1,max=4096"`
	Height int `yaml:"height" validate:"min=1,max=4096"`
	// Position, when non-nil, fixes speaker 1's placement. Auto-centering
	// is the primary, supported mode.
	Position *Position `yaml:"position"`

	// FontSize is the name plate font size in points.
	FontSize int `yaml:"font_size" validate:"min=1,max=200"`
	// FontPath optionally points to a TTF file. When empty or unreadable
	// the renderer falls back through its font chain.
	FontPath string `yaml:"font_path"`
	// FontColor is the name plate text color.
	FontColor color.RGBA `yaml:"-"`
	// PlateBackground is the plate fill, including alpha.
	PlateBackground color.RGBA `yaml:"-"`
	// PlateBorderColor and PlateBorderWidth style the plate outline.
	PlateBorderColor color.RGBA `yaml:"-"`
	PlateBorderWidth int        `yaml:"plate_border_width" validate:"min=0,max=20"`
	// PlatePadding is the inner padding between text and plate edge.
	PlatePadding int `yaml:"plate_padding" validate:"min=0,max=50"`
}

// DefaultSpeakerLayout returns the layout used when a job spec leaves the
// speaker section out.
func DefaultSpeakerLayout() SpeakerLayout {
	return SpeakerLayout{
		Width:            400,
		Height:           300,
		FontSize:         24,
		FontColor:        color.RGBA{R: 255, G: 255, B: 255, A: 255},
		PlateBackground:  color.RGBA{A: 180},
		PlateBorderColor: color.RGBA{R: 255, G: 255, B: 255, A: 255},
		PlateBorderWidth: 2,
		PlatePadding:     10,
	}
}

// Validate checks the layout on its own and against the output frame:
// a speaker box must fit inside the output on both axes.
func (l *SpeakerLayout) Validate(outputWidth, outputHeight int) error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("meeting: speaker layout: %w", err)
	}
	if l.Width > outputWidth || l.Height > outputHeight {
		return fmt.Errorf("meeting: speaker box %dx%d exceeds output %dx%d",
			l.Width, l.Height, outputWidth, outputHeight)
	}
	return nil
}

// ClampFontSize bounds a requested font size relative to the speaker box
// height so plates stay legible without dwarfing the footage.
func ClampFontSize(speakerHeight, requested int) int {
	minSize := max(12, speakerHeight*4/100)
	maxSize := max(minSize+1, speakerHeight*15/100)
	return max(minSize, min(maxSize, requested))
}

// ClampPadding bounds plate padding relative to the output height to avoid
// degenerate plate geometry on very small or very large frames.
func ClampPadding(outputHeight, requested int) int {
	const paddingLimit = 50
	minPad := max(2, outputHeight/100)
	return max(minPad, min(paddingLimit, requested))
}

// Clamp returns a copy of the layout with font size and padding clamped
// against the given output dimensions.
func (l SpeakerLayout) Clamp(outputWidth, outputHeight int) SpeakerLayout {
	l.FontSize = ClampFontSize(l.Height, l.FontSize)
	l.PlatePadding = ClampPadding(outputHeight, l.PlatePadding)
	return l
}
