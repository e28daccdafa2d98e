//go:build !nocv

package opencv

import (
	"image"
	"io"
	"log/slog"
	"math"

	"film-frame-tracker/internal/detect"
	"film-frame-tracker/internal/frame"

	"gocv.io/x/gocv"
)

// ContourDetector ranks closed rectangular contours. Its intermediate Mats
// live for the detector's lifetime; OpenCV only reallocates them when the
// analysis size changes. Call Close to release them.
type ContourDetector struct {
	logger           *slog.Logger
	weightByContrast bool

	blurred gocv.Mat
	edges   gocv.Mat
	dilated gocv.Mat
	kernel  gocv.Mat
	scratch []byte
}

func NewContourDetector(logger *slog.Logger, weightByContrast bool) *ContourDetector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ContourDetector{
		logger:           logger,
		weightByContrast: weightByContrast,
		blurred:          gocv.NewMat(),
		edges:            gocv.NewMat(),
		dilated:          gocv.NewMat(),
		kernel:           gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3}),
	}
}

func (d *ContourDetector) Name() string { return "contour" }

// Detect runs blur, Canny, dilation and external contour extraction, then
// filters each contour on area, aspect ratio and rectangularity against
// its minimum-area rectangle.
func (d *ContourDetector) Detect(a *frame.Analysis, p detect.Params, limit int) detect.CandidateSet {
	src, err := d.wrap(a.Gray)
	if err != nil {
		d.logger.Warn("contour: cannot wrap analysis frame", "error", err)
		return nil
	}
	defer src.Close()

	gocv.GaussianBlur(src, &d.blurred, image.Point{X: 5, Y: 5}, 0, 0, gocv.BorderDefault)
	gocv.Canny(d.blurred, &d.edges, p.CannyLow, p.CannyHigh)
	d.edges.CopyTo(&d.dilated)
	for i := 0; i < p.DilateIters; i++ {
		gocv.Dilate(d.dilated, &d.dilated, d.kernel)
	}

	contours := gocv.FindContours(d.dilated, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	frameArea := float64(src.Rows() * src.Cols())
	minArea := p.MinAreaRatio * frameArea

	var cands detect.CandidateSet
	dropped := 0
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area < minArea {
			dropped++
			continue
		}

		rot := gocv.MinAreaRect(c)
		w, h := float64(rot.Width), float64(rot.Height)
		ratio := math.Max(w, h) / math.Max(1, math.Min(w, h))
		if ratio > p.RatioMax {
			dropped++
			continue
		}
		rectangularity := area / math.Max(1, w*h)
		if rectangularity < p.RectangularityMin {
			dropped++
			continue
		}

		box := gocv.BoundingRect(c)
		score := area
		if d.weightByContrast {
			score = detect.ContrastScore(area, detect.BorderContrast(a.Gray, box))
		}
		cands = append(cands, detect.Candidate{
			Region: a.ToDisplay(detect.RectRegion(box)),
			Score:  score,
		})
	}

	d.logger.Debug("contour: candidates",
		"seq", a.Seq, "contours", contours.Size(), "kept", len(cands), "dropped", dropped)
	return detect.Rank(cands, limit)
}

// wrap views g as a single-channel Mat. Rows with padding are packed into
// the detector's scratch buffer first.
func (d *ContourDetector) wrap(g *image.Gray) (gocv.Mat, error) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	pix := g.Pix
	if g.Stride != w {
		if cap(d.scratch) < w*h {
			d.scratch = make([]byte, w*h)
		}
		pix = d.scratch[:w*h]
		for y := 0; y < h; y++ {
			copy(pix[y*w:(y+1)*w], g.Pix[y*g.Stride:])
		}
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, pix[:w*h])
}

// Close releases the working Mats.
func (d *ContourDetector) Close() error {
	d.blurred.Close()
	d.edges.Close()
	d.dilated.Close()
	d.kernel.Close()
	d.scratch = nil
	return nil
}
