package frame

import (
	"image"
	"math"

	"film-frame-tracker/internal/geom"

	xdraw "golang.org/x/image/draw"
)

// Analysis is the reduced-resolution luma view of one frame. Gray is owned
// by the Sampler and is overwritten by the next Analyze call; consumers
// must copy anything they keep.
type Analysis struct {
	Seq     uint64
	Display geom.Size
	Gray    *image.Gray
	// analysis -> display
	ScaleX, ScaleY float64
}

// Size is the analysis resolution.
func (a *Analysis) Size() geom.Size {
	b := a.Gray.Bounds()
	return geom.Size{W: float64(b.Dx()), H: float64(b.Dy())}
}

// ToDisplay maps an analysis-space region to display space.
func (a *Analysis) ToDisplay(r geom.Region) geom.Region {
	return r.Scale(a.ScaleX, a.ScaleY)
}

// ToAnalysis maps a display-space point to analysis space.
func (a *Analysis) ToAnalysis(p geom.Point) geom.Point {
	return geom.Point{X: p.X / a.ScaleX, Y: p.Y / a.ScaleY}
}

// PointToDisplay maps an analysis-space point to display space.
func (a *Analysis) PointToDisplay(p geom.Point) geom.Point {
	return geom.Point{X: p.X * a.ScaleX, Y: p.Y * a.ScaleY}
}

// Sampler derives the analysis view of incoming frames. Its scaling and
// luma buffers are allocated lazily and only reallocated when the
// analysis size changes.
type Sampler struct {
	width  int
	scaled *image.RGBA
	gray   *image.Gray
	out    Analysis
}

// NewSampler downsamples frames wider than width.
func NewSampler(width int) *Sampler {
	return &Sampler{width: width}
}

// AnalysisSize is the analysis resolution for a frame of w x h.
func (s *Sampler) AnalysisSize(w, h int) (int, int) {
	if s.width <= 0 || w <= s.width {
		return w, h
	}
	sh := int(math.Round(float64(h) * float64(s.width) / float64(w)))
	return s.width, max(1, sh)
}

// Analyze converts f to luma at analysis resolution. The result is valid
// until the next call.
func (s *Sampler) Analyze(f Frame) *Analysis {
	src := f.Image
	b := src.Bounds()
	w, h := s.AnalysisSize(b.Dx(), b.Dy())
	if w != b.Dx() || h != b.Dy() {
		if s.scaled == nil || s.scaled.Rect.Dx() != w || s.scaled.Rect.Dy() != h {
			s.scaled = image.NewRGBA(image.Rect(0, 0, w, h))
		}
		xdraw.ApproxBiLinear.Scale(s.scaled, s.scaled.Rect, src, b, xdraw.Src, nil)
		src = s.scaled
	}
	if s.gray == nil || s.gray.Rect.Dx() != w || s.gray.Rect.Dy() != h {
		s.gray = image.NewGray(image.Rect(0, 0, w, h))
	}
	lumaInto(s.gray, src)

	s.out = Analysis{
		Seq:     f.Seq,
		Display: geom.Size{W: float64(b.Dx()), H: float64(b.Dy())},
		Gray:    s.gray,
		ScaleX:  float64(b.Dx()) / float64(w),
		ScaleY:  float64(b.Dy()) / float64(h),
	}
	return &s.out
}

// Release drops the scaling and luma buffers.
func (s *Sampler) Release() {
	s.scaled = nil
	s.gray = nil
}

// Luma is the ITU-R BT.601 weighting in integer form.
func Luma(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}

func lumaInto(dst *image.Gray, src image.Image) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	switch img := src.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
			out := dst.Pix[y*dst.Stride:]
			for x := 0; x < w; x++ {
				out[x] = Luma(row[x*4], row[x*4+1], row[x*4+2])
			}
		}
	case *image.RGBA:
		for y := 0; y < h; y++ {
			row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
			out := dst.Pix[y*dst.Stride:]
			for x := 0; x < w; x++ {
				out[x] = Luma(row[x*4], row[x*4+1], row[x*4+2])
			}
		}
	default:
		for y := 0; y < h; y++ {
			out := dst.Pix[y*dst.Stride:]
			for x := 0; x < w; x++ {
				r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
				out[x] = Luma(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			}
		}
	}
}
