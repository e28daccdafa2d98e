// Package frame defines the raster frames the engine consumes and the
// sources that supply them.
package frame

import (
	"context"
	"errors"
	"image"
	"time"

	"film-frame-tracker/internal/geom"

	"github.com/disintegration/imaging"
)

var ErrEndOfStream = errors.New("end of stream")

// Frame is one raster sample from a source. The engine holds it for a
// single tick.
type Frame struct {
	Image      image.Image
	Seq        uint64
	CapturedAt time.Time
}

// Size returns the display dimensions of the frame.
func (f Frame) Size() geom.Size {
	if f.Image == nil {
		return geom.Size{}
	}
	b := f.Image.Bounds()
	return geom.Size{W: float64(b.Dx()), H: float64(b.Dy())}
}

// Source yields frames on demand. Next blocks until a frame is available,
// the context ends, or the source is exhausted (ErrEndOfStream).
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// ImageSource serves an in-memory list of images, optionally looping.
type ImageSource struct {
	images []image.Image
	pos    int
	seq    uint64
	loop   bool
	now    func() time.Time
}

func NewImageSource(loop bool, images ...image.Image) *ImageSource {
	return &ImageSource{images: images, loop: loop, now: time.Now}
}

func (s *ImageSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if len(s.images) == 0 {
		return Frame{}, ErrEndOfStream
	}
	if s.pos >= len(s.images) {
		if !s.loop {
			return Frame{}, ErrEndOfStream
		}
		s.pos = 0
	}
	img := s.images[s.pos]
	s.pos++
	s.seq++
	return Frame{Image: img, Seq: s.seq, CapturedAt: s.now()}, nil
}

func (s *ImageSource) Close() error { return nil }

// FileSource decodes still images from disk one per call.
type FileSource struct {
	paths []string
	pos   int
	seq   uint64
}

func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: paths}
}

// Path returns the file behind the most recent frame.
func (s *FileSource) Path() string {
	if s.pos == 0 {
		return ""
	}
	return s.paths[s.pos-1]
}

func (s *FileSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.paths) {
		return Frame{}, ErrEndOfStream
	}
	path := s.paths[s.pos]
	s.pos++
	s.seq++
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Frame{}, err
	}
	return Frame{Image: img, Seq: s.seq, CapturedAt: time.Now()}, nil
}

func (s *FileSource) Close() error { return nil }
