// Package render provides the raster operations behind frame composition:
// image loading, exact and aspect-preserving (letterbox) resizing, alpha
// overlay, and styled name plate rendering.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	_ "image/jpeg" // background decoders
	_ "image/png"

	_ "golang.org/x/image/bmp"

	xdraw "golang.org/x/image/draw"
)

// ErrEmptyImage is returned when an operation receives a zero-sized image.
var ErrEmptyImage = errors.New("render: empty image")

// LoadImage decodes a JPEG, PNG, or BMP file into an RGBA raster.
func LoadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from validated job inputs
	if err != nil {
		return nil, fmt.Errorf("render: open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("render: decode image %s: %w", path, err)
	}
	return ToRGBA(img), nil
}

// ToRGBA returns img as *image.RGBA, copying only when necessary.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// Resize scales src to exactly w x h using a high-quality filter. Used for
// the background, where distortion is acceptable and exact coverage is not.
func Resize(src image.Image, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: invalid target %dx%d", w, h)
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrEmptyImage
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst, nil
}

// Letterbox scales src into a tw x th box preserving aspect ratio, centered
// on a canvas filled with fill. The result is always exactly tw x th, so
// callers can copy it into a fixed-size region without bounds checks.
func Letterbox(src image.Image, tw, th int, fill color.Color) (*image.RGBA, error) {
	if tw <= 0 || th <= 0 {
		return nil, fmt.Errorf("render: invalid target %dx%d", tw, th)
	}
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 {
		return nil, ErrEmptyImage
	}

	// Pick the axis that fills the box exactly. A target box wider than the
	// source aspect fills the height and pads the sides; otherwise it fills
	// the width and pads top/bottom.
	var newW, newH int
	if tw*sh > th*sw {
		newH = th
		newW = th * sw / sh
	} else {
		newW = tw
		newH = tw * sh / sw
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	canvas := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)

	xOff := (tw - newW) / 2
	yOff := (th - newH) / 2
	dstRect := image.Rect(xOff, yOff, xOff+newW, yOff+newH)
	xdraw.CatmullRom.Scale(canvas, dstRect, src, b, xdraw.Src, nil)
	return canvas, nil
}

// Overlay alpha-composites overlay onto dst at (x, y), scaling the overlay's
// own alpha by opacity (0..1). Placement that would run past dst's bounds is
// a no-op, not an error.
func Overlay(dst *image.RGBA, overlay image.Image, x, y int, opacity float64) {
	ob := overlay.Bounds()
	ow, oh := ob.Dx(), ob.Dy()
	db := dst.Bounds()
	if x < db.Min.X || y < db.Min.Y || x+ow > db.Max.X || y+oh > db.Max.Y {
		return
	}
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}

	// Work in non-premultiplied space so the overlay's stored alpha can be
	// scaled by opacity without double-counting.
	src := toNRGBA(overlay)
	for row := 0; row < oh; row++ {
		for col := 0; col < ow; col++ {
			fg := src.NRGBAAt(src.Rect.Min.X+col, src.Rect.Min.Y+row)
			a := float64(fg.A) / 255.0 * opacity
			if a <= 0 {
				continue
			}
			bg := dst.RGBAAt(x+col, y+row)
			dst.SetRGBA(x+col, y+row, color.RGBA{
				R: blend(fg.R, bg.R, a),
				G: blend(fg.G, bg.G, a),
				B: blend(fg.B, bg.B, a),
				A: 255,
			})
		}
	}
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Bounds(), img, b.Min, draw.Src)
	return n
}

func blend(fg, bg uint8, a float64) uint8 {
	v := a*float64(fg) + (1-a)*float64(bg)
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}
