package detect

import (
	"image"
	"math"
)

// BorderContrast compares the mean luma of a band just outside r with the
// mean inside it, normalized to 0..1. Film rebate around an exposed frame
// is usually much darker or lighter than the image area. Returns 0 when no
// band fits inside the image.
func BorderContrast(gray *image.Gray, r image.Rectangle) float64 {
	b := gray.Bounds()
	r = r.Intersect(b)
	if r.Empty() {
		return 0
	}
	band := int(math.Max(2, float64(min(r.Dx(), r.Dy()))*0.05))
	outer := image.Rect(r.Min.X-band, r.Min.Y-band, r.Max.X+band, r.Max.Y+band).Intersect(b)

	var inSum, inN, outSum, outN int
	for y := outer.Min.Y; y < outer.Max.Y; y++ {
		for x := outer.Min.X; x < outer.Max.X; x++ {
			v := int(gray.Pix[gray.PixOffset(x, y)])
			if image.Pt(x, y).In(r) {
				inSum += v
				inN++
			} else {
				outSum += v
				outN++
			}
		}
	}
	if inN == 0 || outN == 0 {
		return 0
	}
	inMean := float64(inSum) / float64(inN)
	outMean := float64(outSum) / float64(outN)
	return math.Abs(outMean-inMean) / 255
}

// minContrastWeight keeps low-contrast candidates ranked by area rather
// than collapsing to zero.
const minContrastWeight = 0.05

// ContrastScore weights area by border contrast.
func ContrastScore(area, contrast float64) float64 {
	return area * math.Max(minContrastWeight, contrast)
}
