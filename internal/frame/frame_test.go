package frame

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"film-frame-tracker/internal/geom"

	"github.com/disintegration/imaging"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

func TestSampler_Downsamples(t *testing.T) {
	s := NewSampler(320)
	a := s.Analyze(Frame{Image: solid(1280, 720, color.RGBA{200, 100, 50, 255}), Seq: 7})

	if got := a.Gray.Bounds(); got.Dx() != 320 || got.Dy() != 180 {
		t.Fatalf("analysis size = %v, want 320x180", got)
	}
	if a.ScaleX != 4 || a.ScaleY != 4 {
		t.Errorf("scale = %v,%v, want 4,4", a.ScaleX, a.ScaleY)
	}
	if a.Display.W != 1280 || a.Display.H != 720 {
		t.Errorf("display = %v", a.Display)
	}
	if a.Seq != 7 {
		t.Errorf("Seq = %d, want 7", a.Seq)
	}
	want := Luma(200, 100, 50)
	if got := a.Gray.GrayAt(100, 100).Y; got != want {
		t.Errorf("luma = %d, want %d", got, want)
	}
}

func TestSampler_SmallFramesKeepResolution(t *testing.T) {
	s := NewSampler(320)
	a := s.Analyze(Frame{Image: solid(200, 100, color.White)})
	if a.Gray.Bounds().Dx() != 200 || a.ScaleX != 1 {
		t.Errorf("small frame was resized: %v scale %v", a.Gray.Bounds(), a.ScaleX)
	}
}

func TestSampler_ReusesBuffer(t *testing.T) {
	s := NewSampler(320)
	first := s.Analyze(Frame{Image: solid(640, 480, color.Black)}).Gray
	second := s.Analyze(Frame{Image: solid(640, 480, color.White)}).Gray
	if first != second {
		t.Error("buffer reallocated for unchanged size")
	}
	third := s.Analyze(Frame{Image: solid(640, 360, color.White)}).Gray
	if third == second {
		t.Error("buffer not resized on dimension change")
	}
}

func TestSampler_SteadyStateDoesNotAllocate(t *testing.T) {
	s := NewSampler(320)
	f := Frame{Image: solid(1280, 720, color.RGBA{200, 100, 50, 255})}
	s.Analyze(f)
	scaled := s.scaled

	if allocs := testing.AllocsPerRun(20, func() { s.Analyze(f) }); allocs > 0 {
		t.Errorf("Analyze allocates %v times per frame after the first", allocs)
	}
	if s.scaled != scaled {
		t.Error("scaling buffer reallocated for unchanged size")
	}
}

func TestSampler_AnalysisSize(t *testing.T) {
	s := NewSampler(320)
	tests := []struct{ w, h, wantW, wantH int }{
		{1280, 720, 320, 180},
		{1920, 1080, 320, 180},
		{320, 240, 320, 240},
		{100, 50, 100, 50},
		{3200, 1, 320, 1},
	}
	for _, tt := range tests {
		if w, h := s.AnalysisSize(tt.w, tt.h); w != tt.wantW || h != tt.wantH {
			t.Errorf("AnalysisSize(%d, %d) = %d, %d, want %d, %d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestAnalysis_Mapping(t *testing.T) {
	s := NewSampler(320)
	a := s.Analyze(Frame{Image: solid(1280, 720, color.Black)})
	p := a.ToAnalysis(a.PointToDisplay(geom.Point{X: 10, Y: 20}))
	if p.X != 10 || p.Y != 20 {
		t.Errorf("round trip = %v", p)
	}
}

func TestLuma(t *testing.T) {
	if Luma(255, 255, 255) != 255 || Luma(0, 0, 0) != 0 {
		t.Error("luma endpoints wrong")
	}
}

func TestImageSource(t *testing.T) {
	ctx := context.Background()
	src := NewImageSource(false, solid(4, 4, color.Black), solid(4, 4, color.White))

	for want := uint64(1); want <= 2; want++ {
		f, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if f.Seq != want {
			t.Errorf("Seq = %d, want %d", f.Seq, want)
		}
	}
	if _, err := src.Next(ctx); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream, got %v", err)
	}
}

func TestImageSource_Loop(t *testing.T) {
	src := NewImageSource(true, solid(4, 4, color.Black))
	for i := 0; i < 3; i++ {
		if _, err := src.Next(context.Background()); err != nil {
			t.Fatalf("Next #%d: %v", i, err)
		}
	}
}

func TestImageSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewImageSource(true, solid(4, 4, color.Black))
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	if err := imaging.Save(solid(16, 8, color.White), path); err != nil {
		t.Fatal(err)
	}
	src := NewFileSource(path)
	f, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if sz := f.Size(); sz.W != 16 || sz.H != 8 {
		t.Errorf("size = %v", sz)
	}
	if src.Path() != path {
		t.Errorf("Path() = %q", src.Path())
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream, got %v", err)
	}
}
