package render

import (
	"image"
	"image/color"
	"log/slog"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// defaultFontPath is the bundled bold sans-serif tried when no explicit
// font is configured.
const defaultFontPath = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"

// minPlateHeight is the floor for plate height regardless of text metrics.
const minPlateHeight = 50

// PlateStyle carries the visual parameters for a name plate.
type PlateStyle struct {
	FontSize    int
	FontPath    string
	FontColor   color.RGBA
	Background  color.RGBA
	BorderColor color.RGBA
	BorderWidth int
	Padding     int
}

// PlateRenderer renders styled name plates. The font face is resolved once
// and reused across frames; resolution failure falls back through a chain
// and never blocks rendering.
type PlateRenderer struct {
	style  PlateStyle
	logger *slog.Logger

	once sync.Once
	face font.Face
}

// NewPlateRenderer creates a renderer for the given style.
func NewPlateRenderer(style PlateStyle, logger *slog.Logger) *PlateRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlateRenderer{style: style, logger: logger}
}

// fontFace resolves the font on first use: configured path, then the
// bundled bold sans-serif, then the built-in bitmap font as a last resort.
func (r *PlateRenderer) fontFace() font.Face {
	r.once.Do(func() {
		points := float64(r.style.FontSize)
		if r.style.FontPath != "" {
			if face, err := gg.LoadFontFace(r.style.FontPath, points); err == nil {
				r.face = face
				return
			}
			r.logger.Warn("configured font not loadable, falling back",
				slog.String("font_path", r.style.FontPath),
			)
		}
		if face, err := gg.LoadFontFace(defaultFontPath, points); err == nil {
			r.face = face
			return
		}
		r.logger.Warn("default font not loadable, using built-in bitmap font")
		r.face = basicfont.Face7x13
	})
	return r.face
}

// Measure returns the rendered bounding box of text under the plate font.
func (r *PlateRenderer) Measure(text string) (w, h int) {
	mc := gg.NewContext(1, 1)
	mc.SetFontFace(r.fontFace())
	fw, fh := mc.MeasureString(text)
	return int(fw + 0.5), int(fh + 0.5)
}

// NamePlate renders a plate for text: background fill with alpha, stroked
// border, and the text centered on both axes. Plate width is at least
// minWidth; height has a fixed floor of 50px.
func (r *PlateRenderer) NamePlate(text string, minWidth int) *image.RGBA {
	textW, textH := r.Measure(text)

	plateW := max(textW+2*r.style.Padding, minWidth)
	plateH := max(textH+2*r.style.Padding, minPlateHeight)

	dc := gg.NewContext(plateW, plateH)
	dc.SetColor(r.style.Background)
	dc.Clear()

	if r.style.BorderWidth > 0 {
		lw := float64(r.style.BorderWidth)
		dc.SetColor(r.style.BorderColor)
		dc.SetLineWidth(lw)
		// Inset by half the stroke width so the border stays inside the plate.
		dc.DrawRectangle(lw/2, lw/2, float64(plateW)-lw, float64(plateH)-lw)
		dc.Stroke()
	}

	dc.SetFontFace(r.fontFace())
	dc.SetColor(r.style.FontColor)
	dc.DrawStringAnchored(text, float64(plateW)/2, float64(plateH)/2, 0.5, 0.5)

	return ToRGBA(dc.Image())
}
