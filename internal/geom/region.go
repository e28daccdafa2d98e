// Package geom holds the rectangle model shared by the detectors, the
// tracker and the editor. All coordinates are in display-frame space.
package geom

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMinSize is the floor applied to region width and height.
const DefaultMinSize = 40.0

// DefaultMargin is the inset used for a freshly created region.
const DefaultMargin = 0.1

var ErrInvalidRegion = errors.New("invalid region")

// Point is a position in display-frame space.
type Point struct {
	X, Y float64
}

// Size is a frame extent.
type Size struct {
	W, H float64
}

// Empty reports whether either dimension is non-positive.
func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// Region is an axis-aligned rectangle. It is a value type: pass it by
// value so that no component can mutate another's copy.
type Region struct {
	X, Y, W, H float64
}

func (r Region) Right() float64  { return r.X + r.W }
func (r Region) Bottom() float64 { return r.Y + r.H }
func (r Region) Area() float64   { return math.Max(0, r.W) * math.Max(0, r.H) }

// Corners returns top-left, top-right, bottom-right, bottom-left.
func (r Region) Corners() [4]Point {
	return [4]Point{
		{r.X, r.Y},
		{r.X + r.W, r.Y},
		{r.X + r.W, r.Y + r.H},
		{r.X, r.Y + r.H},
	}
}

// Contains reports whether p lies inside r, edges included.
func (r Region) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Scale multiplies every coordinate, used to map analysis space to display space.
func (r Region) Scale(sx, sy float64) Region {
	return Region{X: r.X * sx, Y: r.Y * sy, W: r.W * sx, H: r.H * sy}
}

// Near reports whether two regions share an origin within tol.
func (r Region) Near(o Region, tol float64) bool {
	return math.Abs(r.X-o.X) < tol && math.Abs(r.Y-o.Y) < tol
}

func (r Region) String() string {
	return fmt.Sprintf("{x=%.1f y=%.1f w=%.1f h=%.1f}", r.X, r.Y, r.W, r.H)
}

// Bounding returns the axis-aligned box around pts.
func Bounding(pts []Point) Region {
	if len(pts) == 0 {
		return Region{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Region{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Clamp enforces the region invariants against a frame: width and height
// are floored at minSize and capped at the frame, and the origin is moved
// so the whole region stays inside. A frame smaller than minSize lowers
// the floor to the frame dimension.
func Clamp(r Region, frame Size, minSize float64) Region {
	floorW := math.Min(minSize, frame.W)
	floorH := math.Min(minSize, frame.H)
	r.W = math.Max(floorW, math.Min(r.W, frame.W))
	r.H = math.Max(floorH, math.Min(r.H, frame.H))
	r.X = math.Max(0, math.Min(r.X, frame.W-r.W))
	r.Y = math.Max(0, math.Min(r.Y, frame.H-r.H))
	return r
}

// Validate returns ErrInvalidRegion when r breaks the clamping invariants.
func Validate(r Region, frame Size, minSize float64) error {
	floorW := math.Min(minSize, frame.W)
	floorH := math.Min(minSize, frame.H)
	const eps = 1e-9
	switch {
	case math.IsNaN(r.X) || math.IsNaN(r.Y) || math.IsNaN(r.W) || math.IsNaN(r.H):
		return fmt.Errorf("%w: NaN in %v", ErrInvalidRegion, r)
	case r.W < floorW-eps || r.H < floorH-eps:
		return fmt.Errorf("%w: %v below minimum size %.0f", ErrInvalidRegion, r, minSize)
	case r.X < -eps || r.Y < -eps:
		return fmt.Errorf("%w: %v has negative origin", ErrInvalidRegion, r)
	case r.Right() > frame.W+eps || r.Bottom() > frame.H+eps:
		return fmt.Errorf("%w: %v exceeds frame %.0fx%.0f", ErrInvalidRegion, r, frame.W, frame.H)
	}
	return nil
}

// DefaultRegion is the centered region inset by DefaultMargin on every side.
func DefaultRegion(frame Size, minSize float64) Region {
	r := Region{
		X: frame.W * DefaultMargin,
		Y: frame.H * DefaultMargin,
		W: frame.W * (1 - DefaultMargin*2),
		H: frame.H * (1 - DefaultMargin*2),
	}
	return Clamp(r, frame, minSize)
}
