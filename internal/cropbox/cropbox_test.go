package cropbox

import (
	"bytes"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"film-frame-tracker/internal/geom"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

func TestFromRegion(t *testing.T) {
	b := FromRegion(geom.Region{X: 128, Y: 72, W: 1024, H: 576}, geom.Size{W: 1280, H: 720})
	if !approx(b.Left, 0.1) || !approx(b.Right, 0.9) || !approx(b.Top, 0.1) || !approx(b.Bottom, 0.9) {
		t.Errorf("bounds = %+v", b)
	}
	if !approx(b.Retained(), 0.64) {
		t.Errorf("retained = %v", b.Retained())
	}
	if got := FromRegion(geom.Region{W: 10, H: 10}, geom.Size{}); got != Full {
		t.Errorf("empty frame = %+v, want full", got)
	}
}

func TestPixels(t *testing.T) {
	b := Bounds{Left: 0.1, Right: 0.9, Top: 0.25, Bottom: 0.75}
	if got, want := b.Pixels(200, 100), image.Rect(20, 25, 180, 75); got != want {
		t.Errorf("Pixels = %v, want %v", got, want)
	}
	if got := (Bounds{Left: 0.5, Right: 0.5, Top: 0, Bottom: 1}).Pixels(200, 100); !got.Empty() {
		t.Errorf("collapsed bounds gave %v", got)
	}
}

func TestShrinkUniform(t *testing.T) {
	b := ShrinkUniform(Bounds{Left: 0.2, Right: 0.8, Top: 0.2, Bottom: 0.6}, 0.5)
	want := Bounds{Left: 0.35, Right: 0.65, Top: 0.3, Bottom: 0.5}
	if !approx(b.Left, want.Left) || !approx(b.Right, want.Right) || !approx(b.Top, want.Top) || !approx(b.Bottom, want.Bottom) {
		t.Errorf("shrink = %+v, want %+v", b, want)
	}
	degenerate := Bounds{Left: 0.5, Right: 0.5, Top: 0, Bottom: 1}
	if got := ShrinkUniform(degenerate, 0.5); got != degenerate {
		t.Errorf("degenerate bounds changed: %+v", got)
	}
}

func TestEnforce32(t *testing.T) {
	tests := []struct {
		name     string
		b        Bounds
		w, h     int
		ratio    float64
		decision string
	}{
		{"square", Bounds{0, 1, 0, 1}, 1200, 1200, 2.0 / 3.0, "reduce-width"},
		{"4:3", Bounds{0, 1, 0, 1}, 1600, 1200, 1.5, "reduce-height"},
		{"wide crop", Bounds{0, 1, 0, 1}, 2000, 1000, 1.5, "reduce-width"},
		{"tall crop", Bounds{0, 1, 0, 1}, 1000, 2000, 2.0 / 3.0, "reduce-height"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, decision := Enforce32(tt.b, tt.w, tt.h)
			if decision != tt.decision {
				t.Errorf("decision = %s, want %s", decision, tt.decision)
			}
			w := (got.Right - got.Left) * float64(tt.w)
			h := (got.Bottom - got.Top) * float64(tt.h)
			if math.Abs(w/h-tt.ratio) > 1e-6 {
				t.Errorf("ratio = %v, want %v", w/h, tt.ratio)
			}
		})
	}
}

func TestInset(t *testing.T) {
	r := Inset(geom.Region{X: 100, Y: 100, W: 1000, H: 600})
	// mean side 800, 0.5% = 4 px total, 2 per edge
	want := geom.Region{X: 102, Y: 102, W: 996, H: 596}
	if !approx(r.X, want.X) || !approx(r.W, want.W) || !approx(r.H, want.H) {
		t.Errorf("Inset = %v, want %v", r, want)
	}
}

func TestWriteCropData(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCropData(&buf, []float64{0.1, 0.9, 0, 1, 0}); err != nil {
		t.Fatal(err)
	}
	want := "0.100000\r\n0.900000\r\n0.000000\r\n1.000000\r\n0.000000\r\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteCropFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg.txt")
	if err := WriteCropFile(path, Full.Values()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(bytes.Split(bytes.TrimSpace(data), []byte("\r\n"))) != 5 {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestMedianRegion(t *testing.T) {
	got, ok := MedianRegion([]geom.Region{
		{X: 10, Y: 10, W: 100, H: 60},
		{X: 12, Y: 8, W: 100, H: 64},
		{X: 400, Y: 300, W: 50, H: 50},
	})
	if !ok {
		t.Fatal("no median")
	}
	want := geom.Region{X: 12, Y: 10, W: 100, H: 62}
	if got != want {
		t.Errorf("median = %v, want %v", got, want)
	}
	if _, ok := MedianRegion(nil); ok {
		t.Error("median of nothing")
	}
	if Median([]float64{4, 1, 3, 2}) != 2.5 {
		t.Error("even median")
	}
}
