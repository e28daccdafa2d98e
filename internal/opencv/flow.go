//go:build !nocv

package opencv

import (
	"fmt"
	"image"

	"film-frame-tracker/internal/geom"

	"gocv.io/x/gocv"
)

// LKFlow estimates sparse optical flow with pyramidal Lucas-Kanade. The
// point and status Mats are reused across calls.
type LKFlow struct {
	prevPts gocv.Mat
	nextPts gocv.Mat
	status  gocv.Mat
	errs    gocv.Mat
}

func NewLKFlow() *LKFlow {
	return &LKFlow{
		prevPts: gocv.NewMat(),
		nextPts: gocv.NewMat(),
		status:  gocv.NewMat(),
		errs:    gocv.NewMat(),
	}
}

// Estimate moves pts (analysis coordinates in prev) into next. ok[i] is
// false when the solver lost the point or it left the frame.
func (f *LKFlow) Estimate(prev, next *image.Gray, pts []geom.Point) ([]geom.Point, []bool, error) {
	if len(pts) == 0 {
		return nil, nil, nil
	}
	if !prev.Rect.Size().Eq(next.Rect.Size()) {
		return nil, nil, fmt.Errorf("flow: frame size changed from %v to %v", prev.Rect.Size(), next.Rect.Size())
	}
	prevMat, err := grayMat(prev)
	if err != nil {
		return nil, nil, err
	}
	defer prevMat.Close()
	nextMat, err := grayMat(next)
	if err != nil {
		return nil, nil, err
	}
	defer nextMat.Close()

	if f.prevPts.Rows() != len(pts) {
		f.prevPts.Close()
		f.prevPts = gocv.NewMatWithSize(len(pts), 1, gocv.MatTypeCV32FC2)
	}
	for i, p := range pts {
		f.prevPts.SetFloatAt(i, 0, float32(p.X))
		f.prevPts.SetFloatAt(i, 1, float32(p.Y))
	}

	gocv.CalcOpticalFlowPyrLK(prevMat, nextMat, f.prevPts, f.nextPts, &f.status, &f.errs)
	if f.status.Rows() < len(pts) || f.nextPts.Rows() < len(pts) {
		return nil, nil, fmt.Errorf("flow: solver returned %d of %d points", f.status.Rows(), len(pts))
	}

	w, h := float64(next.Rect.Dx()), float64(next.Rect.Dy())
	out := make([]geom.Point, len(pts))
	ok := make([]bool, len(pts))
	for i := range pts {
		p := geom.Point{
			X: float64(f.nextPts.GetFloatAt(i, 0)),
			Y: float64(f.nextPts.GetFloatAt(i, 1)),
		}
		out[i] = p
		ok[i] = f.status.GetUCharAt(i, 0) == 1 && p.X >= 0 && p.Y >= 0 && p.X <= w && p.Y <= h
	}
	return out, ok, nil
}

// Close releases the point Mats.
func (f *LKFlow) Close() error {
	f.prevPts.Close()
	f.nextPts.Close()
	f.status.Close()
	f.errs.Close()
	return nil
}

func grayMat(g *image.Gray) (gocv.Mat, error) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if g.Stride != w {
		return gocv.Mat{}, fmt.Errorf("flow: padded gray rows (stride %d, width %d)", g.Stride, w)
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, g.Pix[:w*h])
}
