//go:build !nocv

package opencv

import (
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"

	"film-frame-tracker/internal/detect"
	"film-frame-tracker/internal/frame"
	"film-frame-tracker/internal/geom"
)

func grayFrame(w, h int, r image.Rectangle) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return g
}

func analysisOf(g *image.Gray, scale float64) *frame.Analysis {
	b := g.Bounds()
	return &frame.Analysis{
		Seq:     1,
		Display: geom.Size{W: float64(b.Dx()) * scale, H: float64(b.Dy()) * scale},
		Gray:    g,
		ScaleX:  scale,
		ScaleY:  scale,
	}
}

func TestAvailable(t *testing.T) {
	if !Available() {
		t.Fatal("Available() = false in an OpenCV build")
	}
}

func TestContourDetector_FindsRectangle(t *testing.T) {
	want := image.Rect(80, 40, 230, 140)
	a := analysisOf(grayFrame(320, 180, want), 4)

	d := NewContourDetector(nil, false)
	defer d.Close()

	got := d.Detect(a, detect.FromAggressiveness(50), 1)
	if len(got) != 1 {
		t.Fatalf("expected one candidate, got %d", len(got))
	}
	r := got[0].Region
	tol := 5 * a.ScaleX
	if math.Abs(r.X-float64(want.Min.X)*4) > tol || math.Abs(r.Y-float64(want.Min.Y)*4) > tol ||
		math.Abs(r.Right()-float64(want.Max.X)*4) > tol || math.Abs(r.Bottom()-float64(want.Max.Y)*4) > tol {
		t.Errorf("region %v too far from %v (x4)", r, want)
	}
}

func TestContourDetector_Idempotent(t *testing.T) {
	g := grayFrame(320, 180, image.Rect(60, 30, 210, 130))
	for y := 150; y < 170; y++ {
		for x := 250; x < 300; x++ {
			g.SetGray(x, y, color.Gray{Y: 200})
		}
	}
	a := analysisOf(g, 2)
	p := detect.FromAggressiveness(100)

	d := NewContourDetector(nil, true)
	defer d.Close()

	first := d.Detect(a, p, 8)
	second := d.Detect(a, p, 8)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated detection differs:\n%v\n%v", first, second)
	}
}

func TestContourDetector_UniformFrame(t *testing.T) {
	a := analysisOf(grayFrame(320, 180, image.Rectangle{}), 1)
	d := NewContourDetector(nil, false)
	defer d.Close()
	if got := d.Detect(a, detect.FromAggressiveness(100), 8); len(got) != 0 {
		t.Errorf("uniform frame produced %v", got)
	}
}

func TestContourDetector_StrictRejectsSmall(t *testing.T) {
	// ~9% of the frame: passes at 100, fails the strict area gate at 0.
	a := analysisOf(grayFrame(320, 180, image.Rect(100, 60, 190, 120)), 1)
	d := NewContourDetector(nil, false)
	defer d.Close()
	if got := d.Detect(a, detect.FromAggressiveness(0), 1); len(got) != 0 {
		t.Errorf("strict params accepted small region: %v", got)
	}
	if got := d.Detect(a, detect.FromAggressiveness(100), 1); len(got) != 1 {
		t.Errorf("permissive params rejected region: %v", got)
	}
}

func TestLKFlow_FollowsShift(t *testing.T) {
	rect := image.Rect(80, 40, 230, 140)
	prev := grayFrame(320, 180, rect)
	next := grayFrame(320, 180, rect.Add(image.Pt(3, 2)))

	f := NewLKFlow()
	defer f.Close()

	pts := []geom.Point{{X: 80, Y: 40}, {X: 230, Y: 40}, {X: 230, Y: 140}, {X: 80, Y: 140}}
	out, ok, err := f.Estimate(prev, next, pts)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	valid := 0
	for i := range pts {
		if !ok[i] {
			continue
		}
		valid++
		if math.Abs(out[i].X-pts[i].X-3) > 1 || math.Abs(out[i].Y-pts[i].Y-2) > 1 {
			t.Errorf("point %d moved to %v, want ~(+3,+2) from %v", i, out[i], pts[i])
		}
	}
	if valid < 3 {
		t.Errorf("only %d of 4 corners tracked", valid)
	}
}

func TestLKFlow_SizeMismatch(t *testing.T) {
	f := NewLKFlow()
	defer f.Close()
	_, _, err := f.Estimate(image.NewGray(image.Rect(0, 0, 10, 10)), image.NewGray(image.Rect(0, 0, 20, 10)),
		[]geom.Point{{X: 1, Y: 1}})
	if err == nil {
		t.Error("expected error for mismatched frames")
	}
}
