// Package compose builds output frames: the resized background, letterboxed
// speaker footage placed into each speaker's box, and alpha-blended name
// plates. Speaker positions are computed once per job, not per frame.
package compose

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/meetframe/meetframe/internal/meeting"
	"github.com/meetframe/meetframe/internal/render"
	"github.com/meetframe/meetframe/internal/video"
)

// Point is a top-left pixel position in the output frame.
type Point struct {
	X int
	Y int
}

// SpeakerPositions computes where the two speaker boxes sit in the output
// frame. Auto-centering places each speaker centered in its half of the
// frame, vertically centered. A fixed position applies verbatim to
// speaker 1; speaker 2 is always auto-centered in the right half.
func SpeakerPositions(layout meeting.SpeakerLayout, target meeting.ExportTarget) (Point, Point) {
	half := target.Width / 2

	s2 := Point{
		X: half + (half-layout.Width)/2,
		Y: (target.Height - layout.Height) / 2,
	}

	if layout.Position != nil {
		return Point{X: layout.Position.X, Y: layout.Position.Y}, s2
	}

	s1 := Point{
		X: (half - layout.Width) / 2,
		Y: (target.Height - layout.Height) / 2,
	}
	return s1, s2
}

// Compositor produces one composited output frame per timeline step.
type Compositor struct {
	layout meeting.SpeakerLayout
	target meeting.ExportTarget
	plates *render.PlateRenderer
	logger *slog.Logger

	pos1 Point
	pos2 Point

	// plateCache holds rendered plates keyed by display name; plates are
	// static across a job.
	plateCache map[string]*image.RGBA
}

// NewCompositor creates a compositor for one job. Positions are resolved
// here and reused for every frame.
func NewCompositor(layout meeting.SpeakerLayout, target meeting.ExportTarget, logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = slog.Default()
	}
	pos1, pos2 := SpeakerPositions(layout, target)
	plates := render.NewPlateRenderer(render.PlateStyle{
		FontSize:    layout.FontSize,
		FontPath:    layout.FontPath,
		FontColor:   layout.FontColor,
		Background:  layout.PlateBackground,
		BorderColor: layout.PlateBorderColor,
		BorderWidth: layout.PlateBorderWidth,
		Padding:     layout.PlatePadding,
	}, logger)

	return &Compositor{
		layout:     layout,
		target:     target,
		plates:     plates,
		logger:     logger,
		pos1:       pos1,
		pos2:       pos2,
		plateCache: make(map[string]*image.RGBA),
	}
}

// PrepareBackground resizes the background image to the output resolution.
// Done once per job; ComposeFrame copies it per frame.
func (c *Compositor) PrepareBackground(bg image.Image) (*image.RGBA, error) {
	return render.Resize(bg, c.target.Width, c.target.Height)
}

// ComposeFrame produces the output raster for one time step. background
// must already be at output resolution (see PrepareBackground). Absent
// speaker frames contribute nothing.
func (c *Compositor) ComposeFrame(background *image.RGBA, f1, f2 video.FrameResult, name1, name2 string) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, c.target.Width, c.target.Height))
	copy(out.Pix, background.Pix)

	if f1.Present() {
		c.placeSpeaker(out, f1.Image, c.pos1, name1)
	}
	if f2.Present() {
		c.placeSpeaker(out, f2.Image, c.pos2, name2)
	}
	return out
}

// placeSpeaker letterboxes the speaker frame into its box, copies it into
// the output, and overlays the name plate beneath it. A box that would fall
// outside the output bounds is skipped silently.
func (c *Compositor) placeSpeaker(out *image.RGBA, frame *image.RGBA, pos Point, name string) {
	sw, sh := c.layout.Width, c.layout.Height
	if pos.X < 0 || pos.Y < 0 || pos.X+sw > c.target.Width || pos.Y+sh > c.target.Height {
		return
	}

	boxed, err := render.Letterbox(frame, sw, sh, color.Black)
	if err != nil {
		c.logger.Warn("speaker frame unusable for this step",
			slog.String("error", err.Error()),
		)
		return
	}

	// boxed is exactly sw x sh, so a raw region copy is safe.
	for y := 0; y < sh; y++ {
		dstOff := out.PixOffset(pos.X, pos.Y+y)
		srcOff := boxed.PixOffset(0, y)
		copy(out.Pix[dstOff:dstOff+4*sw], boxed.Pix[srcOff:srcOff+4*sw])
	}

	if name != "" {
		c.addNamePlate(out, pos, name)
	}
}

// addNamePlate renders (or reuses) the plate for name and composites it 5px
// below the speaker box, horizontally centered under it. A plate that would
// overflow the output vertically is omitted.
func (c *Compositor) addNamePlate(out *image.RGBA, pos Point, name string) {
	plate, ok := c.plateCache[name]
	if !ok {
		plate = c.plates.NamePlate(name, c.layout.Width)
		c.plateCache[name] = plate
	}

	plateW := plate.Bounds().Dx()
	plateH := plate.Bounds().Dy()
	plateY := pos.Y + c.layout.Height + 5
	plateX := pos.X + (c.layout.Width-plateW)/2

	if plateY+plateH > c.target.Height {
		return
	}
	render.Overlay(out, plate, plateX, plateY, 1.0)
}
