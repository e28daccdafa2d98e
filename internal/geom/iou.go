package geom

import "math"

// Intersection returns the overlap of a and b; a zero Region when disjoint.
func Intersection(a, b Region) Region {
	x0 := math.Max(a.X, b.X)
	y0 := math.Max(a.Y, b.Y)
	x1 := math.Min(a.Right(), b.Right())
	y1 := math.Min(a.Bottom(), b.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Region{}
	}
	return Region{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// IoU is intersection area over union area. Disjoint or degenerate
// inputs yield 0.
func IoU(a, b Region) float64 {
	inter := Intersection(a, b).Area()
	if inter <= 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
