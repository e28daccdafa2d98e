package detect

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"film-frame-tracker/internal/frame"
	"film-frame-tracker/internal/geom"
)

// filmFrame draws a white rectangle on black at the given display rect.
func filmFrame(w, h int, r image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.Black}, image.Point{}, draw.Src)
	draw.Draw(img, r, &image.Uniform{color.White}, image.Point{}, draw.Src)
	return img
}

func analyze(img image.Image) *frame.Analysis {
	return frame.NewSampler(320).Analyze(frame.Frame{Image: img, Seq: 1})
}

func TestEdgeDensity_FindsFilmFrame(t *testing.T) {
	// 600x400 (ratio 1.5) covers ~26% of 1280x720.
	want := image.Rect(320, 160, 920, 560)
	a := analyze(filmFrame(1280, 720, want))

	d := NewEdgeDensity(nil)
	defer d.Close()
	got := d.Detect(a, Params{}, 1)
	if len(got) != 1 {
		t.Fatalf("expected one candidate, got %d", len(got))
	}

	// One analysis pixel either side of each edge responds to the step.
	tol := 3 * a.ScaleX
	r := got[0].Region
	checks := []struct {
		name      string
		got, want float64
	}{
		{"x", r.X, float64(want.Min.X)},
		{"y", r.Y, float64(want.Min.Y)},
		{"right", r.Right(), float64(want.Max.X)},
		{"bottom", r.Bottom(), float64(want.Max.Y)},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > tol {
			t.Errorf("%s: got %.1f, want %.1f±%.0f", c.name, c.got, c.want, tol)
		}
	}
}

func TestEdgeDensity_Rejections(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"uniform", filmFrame(640, 360, image.Rectangle{})},
		{"square", filmFrame(640, 360, image.Rect(170, 30, 470, 330))},
		{"tiny", filmFrame(640, 360, image.Rect(300, 160, 345, 190))},
		{"too wide", filmFrame(640, 360, image.Rect(20, 140, 620, 220))},
	}

	d := NewEdgeDensity(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Detect(analyze(tt.img), Params{}, 1); len(got) != 0 {
				t.Errorf("expected no detection, got %v", got)
			}
		})
	}
}

func TestEdgeDensity_ReusesBuffer(t *testing.T) {
	d := NewEdgeDensity(nil)
	a := analyze(filmFrame(640, 360, image.Rect(100, 60, 400, 260)))
	d.Detect(a, Params{}, 1)
	first := &d.mag[0]
	d.Detect(a, Params{}, 1)
	if &d.mag[0] != first {
		t.Error("magnitude buffer reallocated for identical size")
	}
}

func TestFromAggressiveness_Monotonic(t *testing.T) {
	lo := FromAggressiveness(0)
	hi := FromAggressiveness(100)

	if lo.MinAreaRatio == hi.MinAreaRatio || lo.RatioMax == hi.RatioMax {
		t.Fatal("aggressiveness extremes produced identical gates")
	}

	prev := lo
	for a := 10.0; a <= 100; a += 10 {
		p := FromAggressiveness(a)
		if p.MinAreaRatio > prev.MinAreaRatio {
			t.Errorf("MinAreaRatio increased at %v", a)
		}
		if p.RatioMax < prev.RatioMax {
			t.Errorf("RatioMax decreased at %v", a)
		}
		if p.RectangularityMin > prev.RectangularityMin {
			t.Errorf("RectangularityMin increased at %v", a)
		}
		if p.CannyLow > prev.CannyLow || p.CannyHigh > prev.CannyHigh {
			t.Errorf("edge thresholds increased at %v", a)
		}
		if p.DilateIters < prev.DilateIters {
			t.Errorf("DilateIters decreased at %v", a)
		}
		prev = p
	}
}

func TestFromAggressiveness_ClampsAndIsPure(t *testing.T) {
	if FromAggressiveness(-20) != FromAggressiveness(0) {
		t.Error("negative aggressiveness not clamped")
	}
	if FromAggressiveness(400) != FromAggressiveness(100) {
		t.Error("aggressiveness above 100 not clamped")
	}
	if FromAggressiveness(37) != FromAggressiveness(37) {
		t.Error("FromAggressiveness is not deterministic")
	}
}

func TestRank(t *testing.T) {
	cs := CandidateSet{
		{Region: geom.Region{X: 5, Y: 5, W: 1, H: 1}, Score: 2},
		{Region: geom.Region{X: 1, Y: 1, W: 1, H: 1}, Score: 9},
		{Region: geom.Region{X: 9, Y: 0, W: 1, H: 1}, Score: 2},
		{Region: geom.Region{X: 3, Y: 3, W: 1, H: 1}, Score: 4},
	}
	got := Rank(cs, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	wantScores := []float64{9, 4, 2}
	for i, s := range wantScores {
		if got[i].Score != s {
			t.Errorf("rank %d score = %v, want %v", i, got[i].Score, s)
		}
	}
	if got[2].Region.X != 9 {
		t.Errorf("tie not broken by position: %v", got[2].Region)
	}
}

func TestBorderContrast(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	inner := image.Rect(20, 20, 80, 80)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if image.Pt(x, y).In(inner) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	if got := BorderContrast(img, inner); got < 0.99 {
		t.Errorf("contrast = %v, want ~1", got)
	}
	if got := BorderContrast(img, image.Rect(40, 40, 60, 60)); got != 0 {
		t.Errorf("flat contrast = %v, want 0", got)
	}
	if got := ContrastScore(100, 0); got != 100*minContrastWeight {
		t.Errorf("ContrastScore floor = %v", got)
	}
}
