// Package overlay draws a published region set over its frame for debug
// output and the batch analysis images.
package overlay

import (
	"image"
	"image/color"
	"math"

	"film-frame-tracker/internal/engine"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
	"github.com/lucasb-eyer/go-colorful"
)

// Style holds the overlay palette.
type Style struct {
	Locked    colorful.Color
	Candidate colorful.Color
	// Glow is how far the halo color is blended toward black.
	Glow float64
}

func DefaultStyle() Style {
	return Style{
		Locked:    colorful.Color{R: 77.0 / 255, G: 214.0 / 255, B: 193.0 / 255},
		Candidate: colorful.Color{R: 1, G: 138.0 / 255, B: 91.0 / 255},
		Glow:      0.65,
	}
}

// ParseStyle builds a style from hex colors such as "#4dd6c1".
func ParseStyle(locked, candidate string) (Style, error) {
	s := DefaultStyle()
	var err error
	if s.Locked, err = colorful.Hex(locked); err != nil {
		return s, err
	}
	if s.Candidate, err = colorful.Hex(candidate); err != nil {
		return s, err
	}
	return s, nil
}

// LineWidth is the stroke width for a frame width.
func LineWidth(frameW float64) int {
	return int(math.Max(2, frameW/320))
}

// HandleSize is the side of the drawn corner handles for a frame width.
func HandleSize(frameW float64) float64 {
	return math.Max(10, frameW/40)
}

// Render returns a copy of img with snap drawn on top. Region coordinates
// are scaled when img does not match the snapshot frame size.
func Render(img image.Image, snap engine.Snapshot, style Style) (*image.NRGBA, error) {
	b := img.Bounds()
	if snap.Width <= 0 || snap.Height <= 0 {
		return imaging.Clone(img), nil
	}
	dc := gg.NewContextForImage(img)
	defer dc.Close()

	sx := float64(b.Dx()) / snap.Width
	sy := float64(b.Dy()) / snap.Height
	lw := float64(LineWidth(float64(b.Dx())))
	half := math.Round(HandleSize(float64(b.Dx())) / 2)

	black := colorful.Color{}
	for _, p := range snap.Regions {
		c := style.Candidate
		if p.Locked {
			c = style.Locked
		}
		x0, y0 := math.Round(p.X*sx), math.Round(p.Y*sy)
		x1, y1 := math.Round((p.X+p.W)*sx), math.Round((p.Y+p.H)*sy)
		if x1 <= x0 || y1 <= y0 {
			continue
		}

		// one-pixel halo just outside the outline, then the outline itself
		// inside the region edge
		if err := strokeInside(dc, x0-lw, y0-lw, x1+lw, y1+lw, 1, c.BlendLab(black, style.Glow).Clamped()); err != nil {
			return nil, err
		}
		if err := strokeInside(dc, x0, y0, x1, y1, lw, c); err != nil {
			return nil, err
		}

		if !p.Locked {
			continue
		}
		dc.SetColor(toNRGBA(c))
		for _, pt := range [][2]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}} {
			dc.DrawRectangle(pt[0]-half, pt[1]-half, 2*half, 2*half)
			if err := dc.Fill(); err != nil {
				return nil, err
			}
		}
	}
	return imaging.Clone(dc.Image()), nil
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// strokeInside strokes a w-wide border whose outer edge is the rectangle
// (x0,y0)-(x1,y1).
func strokeInside(dc *gg.Context, x0, y0, x1, y1, w float64, c colorful.Color) error {
	dc.SetColor(toNRGBA(c))
	dc.SetLineWidth(w)
	dc.DrawRectangle(x0+w/2, y0+w/2, x1-x0-w, y1-y0-w)
	return dc.Stroke()
}
