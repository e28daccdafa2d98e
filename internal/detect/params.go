package detect

import "math"

// Params are the contour detector thresholds. They are a pure function of
// the aggressiveness scalar.
type Params struct {
	Aggressiveness    float64 `json:"aggressiveness"`
	CannyLow          float32 `json:"canny_low"`
	CannyHigh         float32 `json:"canny_high"`
	MinAreaRatio      float64 `json:"min_area_ratio"`
	RatioMax          float64 `json:"ratio_max"`
	RectangularityMin float64 `json:"rectangularity_min"`
	DilateIters       int     `json:"dilate_iters"`
}

// bounds at aggressiveness 0 (strict) and 100 (permissive)
var (
	strict = Params{
		CannyLow:          80,
		CannyHigh:         200,
		MinAreaRatio:      0.25,
		RatioMax:          1.8,
		RectangularityMin: 0.85,
		DilateIters:       1,
	}
	permissive = Params{
		CannyLow:          20,
		CannyHigh:         80,
		MinAreaRatio:      0.05,
		RatioMax:          3.0,
		RectangularityMin: 0.55,
		DilateIters:       3,
	}
)

// FromAggressiveness interpolates linearly between the strict and
// permissive bounds. Values outside 0..100 are clamped.
func FromAggressiveness(a float64) Params {
	a = math.Max(0, math.Min(100, a))
	t := a / 100
	return Params{
		Aggressiveness:    a,
		CannyLow:          float32(lerp(float64(strict.CannyLow), float64(permissive.CannyLow), t)),
		CannyHigh:         float32(lerp(float64(strict.CannyHigh), float64(permissive.CannyHigh), t)),
		MinAreaRatio:      lerp(strict.MinAreaRatio, permissive.MinAreaRatio, t),
		RatioMax:          lerp(strict.RatioMax, permissive.RatioMax, t),
		RectangularityMin: lerp(strict.RectangularityMin, permissive.RectangularityMin, t),
		DilateIters:       int(math.Round(lerp(float64(strict.DilateIters), float64(permissive.DilateIters), t))),
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
