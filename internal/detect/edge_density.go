package detect

import (
	"image"
	"io"
	"log/slog"

	"film-frame-tracker/internal/frame"
)

// Edge-density heuristic settings
const (
	EdgeThresholdFactor = 2.6
	MinEdgeFraction     = 0.01
	MinBoxAreaRatio     = 0.10
	MaxBoxAreaRatio     = 0.90
	MinFilmAspect       = 1.2
	MaxFilmAspect       = 1.9
)

// EdgeDensity finds a single film frame as the bounding box of strong
// gradients. It has no tunable parameters; Params are ignored.
type EdgeDensity struct {
	logger *slog.Logger
	mag    []int32
}

func NewEdgeDensity(logger *slog.Logger) *EdgeDensity {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &EdgeDensity{logger: logger}
}

func (d *EdgeDensity) Name() string { return "edge-density" }

func (d *EdgeDensity) Detect(a *frame.Analysis, _ Params, limit int) CandidateSet {
	box, ok := d.Locate(a.Gray)
	if !ok || limit == 0 {
		return nil
	}
	r := a.ToDisplay(RectRegion(box))
	return CandidateSet{{Region: r, Score: r.Area()}}
}

// Locate returns the bounding box of pixels whose Sobel magnitude exceeds
// EdgeThresholdFactor times the image mean, or false when the box fails
// the structure, area or aspect gates.
//
// # Algorithm
//
//  1. |Gx| + |Gy| with 3x3 Sobel kernels at every interior pixel
//  2. threshold = 2.6 x mean magnitude over the whole image
//  3. axis-aligned box of all pixels above threshold
//  4. reject when under 1% of pixels pass, the box covers under 10% or
//     over 90% of the image, or long/short side is outside [1.2, 1.9]
func (d *EdgeDensity) Locate(gray *image.Gray) (image.Rectangle, bool) {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return image.Rectangle{}, false
	}
	n := w * h
	if cap(d.mag) < n {
		d.mag = make([]int32, n)
	}
	mag := d.mag[:n]

	var sum int64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y == 0 || y == h-1 || x == 0 || x == w-1 {
				mag[y*w+x] = 0
				continue
			}
			at := func(dx, dy int) int32 {
				return int32(gray.Pix[gray.PixOffset(b.Min.X+x+dx, b.Min.Y+y+dy)])
			}
			gx := (at(1, -1) + 2*at(1, 0) + at(1, 1)) - (at(-1, -1) + 2*at(-1, 0) + at(-1, 1))
			gy := (at(-1, 1) + 2*at(0, 1) + at(1, 1)) - (at(-1, -1) + 2*at(0, -1) + at(1, -1))
			m := abs32(gx) + abs32(gy)
			mag[y*w+x] = m
			sum += int64(m)
		}
	}

	mean := float64(sum) / float64(n)
	threshold := mean * EdgeThresholdFactor

	minX, minY, maxX, maxY := w, h, -1, -1
	count := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if float64(mag[y*w+x]) <= threshold {
				continue
			}
			count++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if float64(count) < float64(n)*MinEdgeFraction {
		d.logger.Debug("edge density: too little structure", "edges", count, "pixels", n)
		return image.Rectangle{}, false
	}

	box := image.Rect(minX, minY, maxX+1, maxY+1)
	areaRatio := float64(box.Dx()*box.Dy()) / float64(n)
	if areaRatio < MinBoxAreaRatio || areaRatio > MaxBoxAreaRatio {
		d.logger.Debug("edge density: area rejected", "ratio", areaRatio, "box", box)
		return image.Rectangle{}, false
	}

	long, short := box.Dx(), box.Dy()
	if short > long {
		long, short = short, long
	}
	aspect := float64(long) / float64(max(1, short))
	if aspect < MinFilmAspect || aspect > MaxFilmAspect {
		d.logger.Debug("edge density: aspect rejected", "aspect", aspect, "box", box)
		return image.Rectangle{}, false
	}

	return box.Add(b.Min), true
}

// Close releases the magnitude buffer.
func (d *EdgeDensity) Close() error {
	d.mag = nil
	return nil
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
