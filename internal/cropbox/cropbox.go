// Package cropbox turns a confirmed region into the normalized crop
// fractions written next to exported stills.
package cropbox

import (
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"sort"

	"film-frame-tracker/internal/geom"
)

// Export settings
const (
	InsetPercent  = 0.005
	ShrinkPercent = 0.01
)

// Bounds are crop edges as fractions of the frame, 0..1.
type Bounds struct {
	Left, Right, Top, Bottom float64
}

// Full keeps the whole frame.
var Full = Bounds{Left: 0, Right: 1, Top: 0, Bottom: 1}

// FromRegion normalizes r against frame.
func FromRegion(r geom.Region, frame geom.Size) Bounds {
	if frame.Empty() {
		return Full
	}
	return Bounds{
		Left:   clamp01(r.X / frame.W),
		Right:  clamp01(r.Right() / frame.W),
		Top:    clamp01(r.Y / frame.H),
		Bottom: clamp01(r.Bottom() / frame.H),
	}
}

// Retained is the fraction of the frame area kept.
func (b Bounds) Retained() float64 {
	return math.Max(0, (b.Right-b.Left)*(b.Bottom-b.Top))
}

// Pixels converts b to a pixel rectangle in a w x h image. The rectangle
// is empty when the bounds collapse.
func (b Bounds) Pixels(w, h int) image.Rectangle {
	x0 := int(math.Max(0, math.Min(float64(w-1), b.Left*float64(w))))
	x1 := int(math.Max(0, math.Min(float64(w), b.Right*float64(w))))
	y0 := int(math.Max(0, math.Min(float64(h-1), b.Top*float64(h))))
	y1 := int(math.Max(0, math.Min(float64(h), b.Bottom*float64(h))))
	if x1 <= x0 || y1 <= y0 {
		return image.Rectangle{}
	}
	return image.Rect(x0, y0, x1, y1)
}

// Values returns left, right, top, bottom and rotation in crop-data order.
// Regions are axis aligned so rotation is always zero.
func (b Bounds) Values() []float64 {
	return []float64{b.Left, b.Right, b.Top, b.Bottom, 0}
}

// Inset pulls every edge in by InsetPercent of the mean side length.
func Inset(r geom.Region) geom.Region {
	d := (r.W + r.H) / 2 * InsetPercent / 2
	return geom.Region{X: r.X + d, Y: r.Y + d, W: math.Max(0, r.W-2*d), H: math.Max(0, r.H-2*d)}
}

// ShrinkUniform scales b about its center by 1-percent.
func ShrinkUniform(b Bounds, percent float64) Bounds {
	width := math.Max(0.0, b.Right-b.Left)
	height := math.Max(0.0, b.Bottom-b.Top)
	if width <= 0.0 || height <= 0.0 {
		return b
	}

	scale := math.Max(0.0, 1.0-percent)
	cx := (b.Left + b.Right) / 2.0
	cy := (b.Top + b.Bottom) / 2.0
	halfW := (width * scale) / 2.0
	halfH := (height * scale) / 2.0

	return Bounds{
		Left:   clamp01(cx - halfW),
		Right:  clamp01(cx + halfW),
		Top:    clamp01(cy - halfH),
		Bottom: clamp01(cy + halfH),
	}
}

// Enforce32 trims b to the nearer of 3:2 and 2:3 in pixel space by
// narrowing whichever side is too long, and reports which side it trimmed.
func Enforce32(b Bounds, imgWidth, imgHeight int) (Bounds, string) {
	x0 := b.Left * float64(imgWidth)
	x1 := b.Right * float64(imgWidth)
	y0 := b.Top * float64(imgHeight)
	y1 := b.Bottom * float64(imgHeight)

	w := math.Max(0.0, x1-x0)
	h := math.Max(0.0, y1-y0)
	if w <= 0.0 || h <= 0.0 {
		return b, "none"
	}

	r := w / h
	target := 3.0 / 2.0
	if math.Abs(r-3.0/2.0) > math.Abs(r-2.0/3.0) {
		target = 2.0 / 3.0
	}

	var decision string
	if r > target {
		delta := w - target*h
		x0 += delta / 2.0
		x1 -= delta / 2.0
		decision = "reduce-width"
	} else {
		delta := h - w/target
		y0 += delta / 2.0
		y1 -= delta / 2.0
		decision = "reduce-height"
	}

	return Bounds{
		Left:   clamp01(x0 / float64(imgWidth)),
		Right:  clamp01(x1 / float64(imgWidth)),
		Top:    clamp01(y0 / float64(imgHeight)),
		Bottom: clamp01(y1 / float64(imgHeight)),
	}, decision
}

// WriteCropData writes one value per line with CRLF endings.
func WriteCropData(w io.Writer, data []float64) error {
	for _, v := range data {
		if _, err := fmt.Fprintf(w, "%f\r\n", v); err != nil {
			return err
		}
	}
	return nil
}

// WriteCropFile writes data to path.
func WriteCropFile(path string, data []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create crop data: %w", err)
	}
	if err := WriteCropData(f, data); err != nil {
		f.Close()
		return fmt.Errorf("write crop data: %w", err)
	}
	return f.Close()
}

// MedianRegion combines regions found in several passes edge by edge.
func MedianRegion(rs []geom.Region) (geom.Region, bool) {
	if len(rs) == 0 {
		return geom.Region{}, false
	}
	var xs, ys, rights, bottoms []float64
	for _, r := range rs {
		xs = append(xs, r.X)
		ys = append(ys, r.Y)
		rights = append(rights, r.Right())
		bottoms = append(bottoms, r.Bottom())
	}
	x, y := Median(xs), Median(ys)
	return geom.Region{X: x, Y: y, W: Median(rights) - x, H: Median(bottoms) - y}, true
}

func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
